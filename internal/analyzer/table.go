package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beorn7/perks/quantile"
)

// ErrModeMismatch is returned when merging tables that track medians differently.
var ErrModeMismatch = errors.New("median mode mismatch")

// MedianMode selects how an Accumulator keeps observed times.
type MedianMode int

const (
	// MedianExact keeps every observation.
	MedianExact MedianMode = iota
	// MedianApprox keeps a targeted quantile stream with bounded memory.
	MedianApprox
)

// medianObjective is the error bound of the approximate median (rank ± 0.5%).
var medianObjective = map[float64]float64{0.5: 0.005}

func (m MedianMode) String() string {
	switch m {
	case MedianApprox:
		return "approx"
	default:
		return "exact"
	}
}

// ParseMedianMode parses "exact" or "approx".
func ParseMedianMode(s string) (MedianMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return MedianExact, nil
	case "approx", "approximate":
		return MedianApprox, nil
	}
	return MedianExact, fmt.Errorf("unknown median mode %q", s)
}

// Accumulator holds the running statistics for one path.
type Accumulator struct {
	Count   uint64
	TimeSum float64
	TimeMax float64

	times  []float64
	stream *quantile.Stream
}

func newAccumulator(mode MedianMode) *Accumulator {
	if mode == MedianApprox {
		return &Accumulator{stream: quantile.NewTargeted(medianObjective)}
	}
	return &Accumulator{}
}

func (a *Accumulator) add(t float64) {
	a.Count++
	a.TimeSum += t
	a.TimeMax = max(a.TimeMax, t)
	if a.stream != nil {
		a.stream.Insert(t)
		return
	}
	a.times = append(a.times, t)
}

func (a *Accumulator) merge(o *Accumulator) {
	a.Count += o.Count
	a.TimeSum += o.TimeSum
	a.TimeMax = max(a.TimeMax, o.TimeMax)

	if a.stream == nil {
		a.times = append(a.times, o.times...)
		return
	}
	// Re-insert each retained sample by weight; Stream.Merge is not rank-correct.
	for _, s := range o.stream.Samples() {
		for i := 0; i < int(s.Width); i++ {
			a.stream.Insert(s.Value)
		}
	}
}

// Times returns a copy of the observed times in arrival order.
// It is nil for approximate accumulators.
func (a *Accumulator) Times() []float64 {
	if a.stream != nil {
		return nil
	}
	out := make([]float64, len(a.times))
	copy(out, a.times)
	return out
}

// Median returns the median observed time, or 0 for an empty accumulator.
func (a *Accumulator) Median() float64 {
	if a.stream != nil {
		if a.Count == 0 {
			return 0
		}
		return a.stream.Query(0.5)
	}
	return Median(a.times)
}

// Table maps request paths to their accumulators. It is not safe for
// concurrent use; parallel ingestion uses one Table per worker and Merge.
type Table struct {
	mode   MedianMode
	byPath map[string]*Accumulator
	order  []string
}

// NewTable returns an empty table.
func NewTable(mode MedianMode) *Table {
	return &Table{
		mode:   mode,
		byPath: make(map[string]*Accumulator),
	}
}

// Mode returns the table's median mode.
func (t *Table) Mode() MedianMode { return t.mode }

// Ingest records one response time for path and returns its accumulator.
func (t *Table) Ingest(path string, rt float64) *Accumulator {
	acc := t.getOrCreate(path)
	acc.add(rt)
	return acc
}

func (t *Table) getOrCreate(path string) *Accumulator {
	acc, ok := t.byPath[path]
	if !ok {
		acc = newAccumulator(t.mode)
		t.byPath[path] = acc
		t.order = append(t.order, path)
	}
	return acc
}

// Get returns the accumulator for path, if any.
func (t *Table) Get(path string) (*Accumulator, bool) {
	acc, ok := t.byPath[path]
	return acc, ok
}

// Len returns the number of distinct paths.
func (t *Table) Len() int { return len(t.order) }

// Paths returns the paths in first-seen order.
func (t *Table) Paths() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Merge folds other into t. Paths new to t are appended in other's
// first-seen order.
func (t *Table) Merge(other *Table) error {
	if other.mode != t.mode {
		return fmt.Errorf("%w: %s into %s", ErrModeMismatch, other.mode, t.mode)
	}
	for _, path := range other.order {
		t.getOrCreate(path).merge(other.byPath[path])
	}
	return nil
}
