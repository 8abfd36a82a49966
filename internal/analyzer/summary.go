package analyzer

import "sort"

// Totals are the run-wide denominators for percentages.
type Totals struct {
	CountSum uint64  `json:"count_sum"`
	TimeSum  float64 `json:"time_sum"`
}

// Row is the finalized statistics of one path.
type Row struct {
	Path      string  `json:"url"`
	Count     uint64  `json:"count"`
	CountPerc float64 `json:"count_perc"`
	TimeSum   float64 `json:"time_sum"`
	TimePerc  float64 `json:"time_perc"`
	TimeAvg   float64 `json:"time_avg"`
	TimeMax   float64 `json:"time_max"`
	TimeMed   float64 `json:"time_med"`
}

// Summary is the result of Summarize: totals and one row per path in
// first-seen order.
type Summary struct {
	Totals Totals
	Rows   []Row
}

// Summarize computes run totals, then the derived metrics of every path.
// The table is not modified.
func Summarize(t *Table) Summary {
	var totals Totals
	for _, path := range t.order {
		acc := t.byPath[path]
		totals.CountSum += acc.Count
		totals.TimeSum += acc.TimeSum
	}

	rows := make([]Row, 0, len(t.order))
	for _, path := range t.order {
		acc := t.byPath[path]
		// Every accumulator in a table has Count >= 1.
		row := Row{
			Path:      path,
			Count:     acc.Count,
			CountPerc: pct(float64(acc.Count), float64(totals.CountSum)),
			TimeSum:   acc.TimeSum,
			TimePerc:  pct(acc.TimeSum, totals.TimeSum),
			TimeAvg:   acc.TimeSum / float64(acc.Count),
			TimeMax:   acc.TimeMax,
			TimeMed:   acc.Median(),
		}
		rows = append(rows, row)
	}

	return Summary{Totals: totals, Rows: rows}
}

func pct(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

// Median returns the median of values without reordering them.
// It is 0 for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
