package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loganalyzer/urlreport/internal/parser"
)

// Options defines all available filter criteria.
type Options struct {
	// PathRegex keeps only entries whose path matches.
	PathRegex *regexp.Regexp
	// ExcludeRegex drops entries whose path matches.
	ExcludeRegex *regexp.Regexp
	// Methods, if non-empty, only allows these HTTP methods.
	Methods map[string]bool
	// MinTime drops entries faster than this many seconds (0 = no filter).
	MinTime float64
}

// Build compiles filter options from their string forms. Empty strings disable
// the corresponding rule; methods is a comma-separated list.
func Build(path, exclude, methods string, minTime float64) (Options, error) {
	opts := Options{MinTime: minTime}

	if path != "" {
		re, err := regexp.Compile(path)
		if err != nil {
			return opts, fmt.Errorf("invalid path regex %q: %w", path, err)
		}
		opts.PathRegex = re
	}

	if exclude != "" {
		re, err := regexp.Compile(exclude)
		if err != nil {
			return opts, fmt.Errorf("invalid exclude regex %q: %w", exclude, err)
		}
		opts.ExcludeRegex = re
	}

	if methods != "" {
		opts.Methods = make(map[string]bool)
		for _, m := range strings.Split(methods, ",") {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m != "" {
				opts.Methods[m] = true
			}
		}
	}

	if minTime < 0 {
		return opts, fmt.Errorf("invalid min time %v: must not be negative", minTime)
	}

	return opts, nil
}

// IsNoop reports whether opts accepts every entry.
func (o Options) IsNoop() bool {
	return o.PathRegex == nil &&
		o.ExcludeRegex == nil &&
		len(o.Methods) == 0 &&
		o.MinTime == 0
}

// Match reports whether e passes every configured rule.
func (o Options) Match(e parser.LogEntry) bool {
	if o.IsNoop() {
		return true
	}
	if len(o.Methods) > 0 && !o.Methods[e.Method] {
		return false
	}
	if o.MinTime > 0 && e.ResponseTime < o.MinTime {
		return false
	}
	if o.PathRegex != nil && !o.PathRegex.MatchString(e.Path) {
		return false
	}
	if o.ExcludeRegex != nil && o.ExcludeRegex.MatchString(e.Path) {
		return false
	}
	return true
}
