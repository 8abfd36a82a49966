package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loganalyzer/urlreport/internal/analyzer"
	"github.com/loganalyzer/urlreport/internal/parser"
)

// DefaultSize is the number of rows kept when no report size is configured.
const DefaultSize = 1000

// hotPathCount is the length of the most-requested list.
const hotPathCount = 10

// Report is the finished, ordered result of one analysis run.
type Report struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Sources     []string         `json:"sources"`
	MedianMode  string           `json:"median_mode"`
	Lines       parser.LineStats `json:"lines"`
	Totals      analyzer.Totals  `json:"totals"`
	Paths       int              `json:"paths"`
	Rows        []analyzer.Row   `json:"rows"`
	HotPaths    []analyzer.Row   `json:"hot_paths,omitempty"`
}

// Options carries the run metadata and the top-N cutoff.
type Options struct {
	Size       int
	Sources    []string
	Lines      parser.LineStats
	MedianMode analyzer.MedianMode
	// Now is used for GeneratedAt and the run id; zero means time.Now.
	Now time.Time
}

// Renderer formats a report. Implementations live in the output package.
type Renderer interface {
	Render(w io.Writer, r Report) error
}

// Deliver renders r through renderer into a buffered w and flushes it. The
// caller owns w.
func Deliver(w io.Writer, r Report, renderer Renderer) error {
	bw := bufio.NewWriter(w)
	if err := renderer.Render(bw, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// SelectTop returns the n rows with the largest total time, ties kept in
// first-seen order. rows is not modified.
func SelectTop(rows []analyzer.Row, n int) []analyzer.Row {
	return topBy(rows, n, func(a, b analyzer.Row) bool { return a.TimeSum > b.TimeSum })
}

// HotPaths returns the n most requested rows, ties kept in first-seen order.
func HotPaths(rows []analyzer.Row, n int) []analyzer.Row {
	return topBy(rows, n, func(a, b analyzer.Row) bool { return a.Count > b.Count })
}

func topBy(rows []analyzer.Row, n int, less func(a, b analyzer.Row) bool) []analyzer.Row {
	if n <= 0 {
		return []analyzer.Row{}
	}
	sorted := make([]analyzer.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Build assembles the report for a summarized run.
func Build(s analyzer.Summary, opts Options) Report {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	size := opts.Size
	if size == 0 {
		size = DefaultSize
	}

	return Report{
		RunID:       ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		GeneratedAt: now.UTC(),
		Sources:     opts.Sources,
		MedianMode:  opts.MedianMode.String(),
		Lines:       opts.Lines,
		Totals:      s.Totals,
		Paths:       len(s.Rows),
		Rows:        SelectTop(s.Rows, size),
		HotPaths:    HotPaths(s.Rows, hotPathCount),
	}
}
