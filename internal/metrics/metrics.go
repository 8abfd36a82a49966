package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loganalyzer/urlreport/internal/parser"
)

const namespace = "urlreport"

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

// Run holds the collectors for one analysis run. Each Run owns its registry so
// the textfile only ever carries this run's values.
type Run struct {
	registry *prometheus.Registry

	lines    *prometheus.CounterVec
	sources  *prometheus.CounterVec
	paths    prometheus.Gauge
	duration prometheus.Histogram
}

// NewRun registers a fresh set of collectors.
func NewRun() *Run {
	r := &Run{registry: prometheus.NewRegistry()}

	r.lines = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_total",
		Help:      "Log lines read, by outcome",
	}, []string{"outcome"})

	r.sources = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sources_total",
		Help:      "Log sources processed, by result",
	}, []string{"result"})

	r.paths = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "distinct_paths",
		Help:      "Distinct request paths in the last report",
	})

	r.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of an analysis run",
		Buckets:   durationBuckets,
	})

	r.registry.MustRegister(r.lines, r.sources, r.paths, r.duration)
	return r
}

// ObserveLines adds the line counts of one or more sources.
func (r *Run) ObserveLines(s parser.LineStats) {
	r.lines.WithLabelValues("matched").Add(float64(s.Matched))
	r.lines.WithLabelValues("skipped").Add(float64(s.Skipped))
	r.lines.WithLabelValues("filtered").Add(float64(s.Filtered))
}

// ObserveSource counts a finished source.
func (r *Run) ObserveSource(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.sources.WithLabelValues(result).Inc()
}

// SetPaths records the number of distinct paths.
func (r *Run) SetPaths(n int) {
	r.paths.Set(float64(n))
}

// ObserveDuration records the run's wall time.
func (r *Run) ObserveDuration(d time.Duration) {
	r.duration.Observe(d.Seconds())
}

// Registry exposes the run's registry.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes the metrics in the text exposition format, for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
