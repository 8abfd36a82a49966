package parser

// LogEntry is the request data extracted from one matched log line.
type LogEntry struct {
	Method string
	Path   string
	// ResponseTime in seconds.
	ResponseTime float64
	LineNumber   int
}

// LineStats counts how the lines of a source were handled.
type LineStats struct {
	Total   int `json:"total"`
	Matched int `json:"matched"`
	Skipped int `json:"skipped"`
	// Filtered lines matched the grammar but were dropped by a filter.
	Filtered int `json:"filtered"`
}

// Add returns the field-wise sum of s and o.
func (s LineStats) Add(o LineStats) LineStats {
	return LineStats{
		Total:    s.Total + o.Total,
		Matched:  s.Matched + o.Matched,
		Skipped:  s.Skipped + o.Skipped,
		Filtered: s.Filtered + o.Filtered,
	}
}
