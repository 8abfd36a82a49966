package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/loganalyzer/urlreport/internal/parser"
)

func TestObserveLines(t *testing.T) {
	r := NewRun()
	r.ObserveLines(parser.LineStats{Total: 10, Matched: 6, Skipped: 3, Filtered: 1})
	r.ObserveLines(parser.LineStats{Total: 2, Matched: 2})

	tests := map[string]float64{"matched": 8, "skipped": 3, "filtered": 1}
	for outcome, want := range tests {
		if got := testutil.ToFloat64(r.lines.WithLabelValues(outcome)); got != want {
			t.Errorf("lines{%s} = %v, want %v", outcome, got, want)
		}
	}
}

func TestObserveSource(t *testing.T) {
	r := NewRun()
	r.ObserveSource(nil)
	r.ObserveSource(nil)
	r.ObserveSource(errors.New("boom"))

	if got := testutil.ToFloat64(r.sources.WithLabelValues("ok")); got != 2 {
		t.Errorf("sources{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.sources.WithLabelValues("error")); got != 1 {
		t.Errorf("sources{error} = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRun()
	r.ObserveLines(parser.LineStats{Matched: 4})
	r.SetPaths(3)
	r.ObserveDuration(250 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "urlreport.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	checks := []string{
		`urlreport_lines_total{outcome="matched"} 4`,
		"urlreport_distinct_paths 3",
		"urlreport_run_duration_seconds_count 1",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("textfile missing %q:\n%s", check, out)
		}
	}
}

func TestRunsAreIndependent(t *testing.T) {
	a, b := NewRun(), NewRun()
	a.SetPaths(5)
	if got := testutil.ToFloat64(b.paths); got != 0 {
		t.Errorf("second run paths = %v, want 0", got)
	}
}
