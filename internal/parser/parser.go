package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// requestRe matches the quoted request line and the response time that ends the
// record, e.g.
// 1.2.3.4 - - [29/Jun/2017:03:50:22 +0300] "GET /api/v2/banner/25019354 HTTP/1.1" 200 927 "-" "Lynx/2.8.8dev.9" "-" "1498697422-2190034393-4708-9752759" "dc7161be3" 0.390
// The lazy gap makes the time group start at the earliest position from which a
// decimal reaches end of line, so trailing "1.5 2.25" yields 2.25.
var requestRe = regexp.MustCompile(
	`"(GET|POST|PUT|DELETE|HEAD) (\S+) HTTP/\d\.\d".*?(\d+\.\d+)$`,
)

// LineSource is a forward-only sequence of log lines.
type LineSource interface {
	Next() bool
	Line() string
	LineNumber() int
	Err() error
}

// Extract pulls the method, path and response time out of a single line.
// It reports false when the line does not fit the grammar or the time is not a
// finite non-negative number.
func Extract(line string) (LogEntry, bool) {
	line = strings.TrimRight(line, "\r\n")
	m := requestRe.FindStringSubmatch(line)
	if m == nil {
		return LogEntry{}, false
	}

	rt, err := strconv.ParseFloat(m[3], 64)
	if err != nil || rt < 0 || math.IsInf(rt, 0) || math.IsNaN(rt) {
		return LogEntry{}, false
	}

	return LogEntry{
		Method:       m[1],
		Path:         m[2],
		ResponseTime: rt,
	}, true
}

// Scan feeds every matched line of src to fn. fn returns false when it rejected
// the entry, which is counted as filtered. Lines outside the grammar are skipped
// and counted; only source errors are returned.
func Scan(src LineSource, fn func(LogEntry) bool) (LineStats, error) {
	var stats LineStats
	for src.Next() {
		stats.Total++
		entry, ok := Extract(src.Line())
		if !ok {
			stats.Skipped++
			continue
		}
		entry.LineNumber = src.LineNumber()
		if !fn(entry) {
			stats.Filtered++
			continue
		}
		stats.Matched++
	}
	return stats, src.Err()
}
