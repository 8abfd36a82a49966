package output

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/loganalyzer/urlreport/internal/report"
)

// Formats lists the supported report formats.
var Formats = []string{"html", "json", "csv", "table"}

// New returns the renderer for format. templatePath overrides the built-in HTML
// template and is ignored for other formats.
func New(format, templatePath string) (report.Renderer, error) {
	switch strings.ToLower(format) {
	case "", "html":
		return NewHTML(templatePath)
	case "json":
		return JSON{}, nil
	case "csv":
		return CSV{}, nil
	case "table":
		return Table{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return ".json"
	case "csv":
		return ".csv"
	case "table":
		return ".txt"
	default:
		return ".html"
	}
}

func utoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}

func ptoa(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// truncateHead keeps the first n runes of s, marking the cut with "...".
func truncateHead(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// truncateTail keeps the last n runes of s, marking the cut with "...".
func truncateTail(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return "..." + string(r[len(r)-(n-3):])
}
