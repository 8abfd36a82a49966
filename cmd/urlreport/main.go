package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/loganalyzer/urlreport/internal/analyzer"
	"github.com/loganalyzer/urlreport/internal/config"
	"github.com/loganalyzer/urlreport/internal/filter"
	"github.com/loganalyzer/urlreport/internal/logger"
	"github.com/loganalyzer/urlreport/internal/metrics"
	"github.com/loganalyzer/urlreport/internal/output"
	"github.com/loganalyzer/urlreport/internal/publish"
	"github.com/loganalyzer/urlreport/internal/report"
	"github.com/loganalyzer/urlreport/internal/source"
	"github.com/loganalyzer/urlreport/internal/worker"
)

const version = "1.0.0"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// flags holds the parsed command line. Values that also live in the config
// only override it when set explicitly.
type flags struct {
	set *flag.FlagSet

	configPath  string
	reportSize  int
	reportDir   string
	logDir      string
	logPattern  string
	format      string
	out         string
	template    string
	workers     int
	median      string
	path        string
	exclude     string
	methods     string
	minTime     float64
	natsURL     string
	natsSubject string
	metricsFile string
	logLevel    string
	logFormat   string
	noProgress  bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{set: flag.NewFlagSet("urlreport", flag.ContinueOnError)}
	fs := f.set
	fs.SetOutput(stderr)

	fs.StringVar(&f.configPath, "config", "config.json", "path to the JSON config file")
	fs.IntVar(&f.reportSize, "report-size", 0, "number of URLs in the report (overrides REPORT_SIZE)")
	fs.StringVar(&f.reportDir, "report-dir", "", "directory the report is written to (overrides REPORT_DIR)")
	fs.StringVar(&f.logDir, "log-dir", "", "directory searched for the newest log (overrides LOG_DIR)")
	fs.StringVar(&f.logPattern, "log-pattern", "", "regex a log file name must match to be picked from the log dir")
	fs.StringVar(&f.format, "format", "", "report format: html, json, csv, table")
	fs.StringVar(&f.out, "out", "", "report file path, - for stdout (default <report-dir>/report.<ext>)")
	fs.StringVar(&f.template, "template", "", "custom HTML template")
	fs.IntVar(&f.workers, "workers", 0, "number of concurrent workers (default number of CPUs)")
	fs.StringVar(&f.median, "median", "", "median mode: exact, approx")
	fs.StringVar(&f.path, "path", "", "filter: keep only URLs matching this regex")
	fs.StringVar(&f.exclude, "exclude", "", "filter: drop URLs matching this regex")
	fs.StringVar(&f.methods, "methods", "", "filter: comma-separated HTTP methods to keep")
	fs.Float64Var(&f.minTime, "min-time", 0, "filter: drop requests faster than this many seconds")
	fs.StringVar(&f.natsURL, "nats-url", "", "publish the report to this NATS server")
	fs.StringVar(&f.natsSubject, "nats-subject", "", "NATS subject for published reports")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics to this Prometheus textfile")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "json", "log format: json, text")
	fs.BoolVar(&f.noProgress, "no-progress", false, "disable progress bar")
	fs.BoolVar(&f.showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: urlreport [options] [file-or-dir ...]\n\n")
		fmt.Fprintf(stderr, "Builds a per-URL latency report from nginx access logs. With no paths the\n")
		fmt.Fprintf(stderr, "newest file in the log dir is analyzed.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  urlreport -config config.json\n")
		fmt.Fprintf(stderr, "  urlreport -format json -out - /var/log/nginx/access.log-20170630.gz\n")
		fmt.Fprintf(stderr, "  urlreport -workers 8 -path '^/api/' -format table logs/\n")
	}

	return f, fs.Parse(args)
}

// apply copies explicitly set flags over cfg.
func (f *flags) apply(cfg *config.Config) {
	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "report-size":
			cfg.ReportSize = f.reportSize
		case "report-dir":
			cfg.ReportDir = f.reportDir
		case "log-dir":
			cfg.LogDir = f.logDir
		case "log-pattern":
			cfg.LogPattern = f.logPattern
		case "format":
			cfg.Format = f.format
		case "template":
			cfg.Template = f.template
		case "workers":
			cfg.Workers = f.workers
		case "median":
			cfg.Median = f.median
		case "nats-url":
			cfg.NATSURL = f.natsURL
		case "nats-subject":
			cfg.NATSSubject = f.natsSubject
		case "metrics-file":
			cfg.MetricsFile = f.metricsFile
		}
	})
}

func run(args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}

	if f.showVersion {
		fmt.Fprintf(stdout, "urlreport %s\n", version)
		return exitOK
	}

	level, err := logger.ParseLevel(f.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	log := logger.New("urlreport", level, f.logFormat, stderr)

	cfg, err := config.Load(f.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn("config file not found, using defaults", "path", f.configPath)
	case err != nil:
		log.Error("load config", "err", err)
		return exitUsage
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		return exitUsage
	}

	mode, err := analyzer.ParseMedianMode(cfg.Median)
	if err != nil {
		log.Error("config", "err", err)
		return exitUsage
	}
	filterOpts, err := filter.Build(f.path, f.exclude, f.methods, f.minTime)
	if err != nil {
		log.Error("filter", "err", err)
		return exitUsage
	}
	renderer, err := output.New(cfg.Format, cfg.Template)
	if err != nil {
		log.Error("output", "err", err)
		return exitUsage
	}

	files, err := selectSources(cfg, f.set.Args())
	if err != nil {
		log.Error("select sources", "err", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	rep, runMetrics, err := analyze(ctx, log, cfg, files, mode, filterOpts, progressFunc(stderr, f.noProgress, len(files)))
	if err != nil {
		log.Error("analysis failed", "err", err)
		writeMetrics(log, cfg, runMetrics)
		return exitFailure
	}
	log = log.With("run_id", rep.RunID)

	dest, err := writeReport(stdout, renderer, rep, cfg, f.out)
	if err != nil {
		log.Error("write report", "err", err)
		return exitFailure
	}
	log.Info("report written",
		"dest", dest,
		"rows", len(rep.Rows),
		"paths", rep.Paths,
		"lines", rep.Lines.Total,
		"matched", rep.Lines.Matched,
		"skipped", rep.Lines.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	code := exitOK
	if cfg.NATSURL != "" {
		if err := publishReport(ctx, cfg, rep); err != nil {
			log.Error("publish report", "err", err)
			code = exitFailure
		} else {
			log.Info("report published", "subject", cfg.NATSSubject)
		}
	}

	runMetrics.ObserveDuration(time.Since(start))
	if !writeMetrics(log, cfg, runMetrics) {
		code = exitFailure
	}
	return code
}

// selectSources returns the explicit paths expanded, or the newest log in the
// configured log dir when there are none.
func selectSources(cfg config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		pattern, err := cfg.Pattern()
		if err != nil {
			return nil, err
		}
		latest, err := source.Latest(cfg.LogDir, pattern)
		if err != nil {
			return nil, err
		}
		return []string{latest}, nil
	}

	files, err := source.Discover(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrNoSource, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in the specified paths", source.ErrNoSource)
	}
	return files, nil
}

// analyze runs the pool over files and builds the report. The returned metrics
// are never nil.
func analyze(ctx context.Context, log *slog.Logger, cfg config.Config, files []string,
	mode analyzer.MedianMode, opts filter.Options, progress worker.ProgressFunc) (report.Report, *metrics.Run, error) {
	runMetrics := metrics.NewRun()

	log.Info("analyzing", "sources", len(files), "workers", cfg.Workers, "median", mode.String())
	pool := &worker.Pool{
		Workers:    cfg.Workers,
		Filter:     opts,
		Mode:       mode,
		OnProgress: progress,
	}
	results := pool.Process(ctx, files)
	for _, r := range results {
		runMetrics.ObserveSource(r.Err)
		runMetrics.ObserveLines(r.Lines)
		if r.Err == nil {
			log.Debug("source done", "source", r.Path, "lines", r.Lines.Total, "matched", r.Lines.Matched, "skipped", r.Lines.Skipped)
		}
	}

	table, lines, err := worker.Merge(mode, results)
	if err != nil {
		return report.Report{}, runMetrics, err
	}
	runMetrics.SetPaths(table.Len())

	rep := report.Build(analyzer.Summarize(table), report.Options{
		Size:       cfg.ReportSize,
		Sources:    files,
		Lines:      lines,
		MedianMode: mode,
	})
	return rep, runMetrics, nil
}

func progressFunc(stderr io.Writer, disabled bool, sources int) worker.ProgressFunc {
	if disabled || sources < 2 {
		return nil
	}
	f, ok := stderr.(*os.File)
	if !ok || !output.Interactive(f) {
		return nil
	}
	return output.NewProgressBar(f).Update
}

// writeReport renders rep to out, or to the default report path when out is
// empty. It returns where the report went.
func writeReport(stdout io.Writer, renderer report.Renderer, rep report.Report, cfg config.Config, out string) (string, error) {
	if out == "-" {
		return "stdout", report.Deliver(stdout, rep, renderer)
	}
	if out == "" {
		out = filepath.Join(cfg.ReportDir, cfg.ReportName+output.Extension(cfg.Format))
	}

	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return out, fmt.Errorf("create report dir: %w", err)
	}

	// Render next to the target and rename, so a failed run never leaves a
	// truncated report behind.
	tmp, err := os.CreateTemp(dir, ".urlreport-*")
	if err != nil {
		return out, fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := report.Deliver(tmp, rep, renderer); err != nil {
		tmp.Close()
		return out, err
	}
	if err := tmp.Close(); err != nil {
		return out, fmt.Errorf("write report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return out, fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return out, fmt.Errorf("write report: %w", err)
	}
	return out, nil
}

func publishReport(ctx context.Context, cfg config.Config, rep report.Report) error {
	p, err := publish.Connect(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return p.Publish(ctx, rep)
}

// writeMetrics reports false when the textfile could not be written.
func writeMetrics(log *slog.Logger, cfg config.Config, m *metrics.Run) bool {
	if cfg.MetricsFile == "" || m == nil {
		return true
	}
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Error("write metrics", "err", err, "path", cfg.MetricsFile)
		return false
	}
	return true
}
