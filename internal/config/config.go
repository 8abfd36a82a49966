package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/loganalyzer/urlreport/internal/analyzer"
)

// ErrInvalid is returned for a malformed config file or out-of-range values.
var ErrInvalid = errors.New("invalid config")

// envPrefix namespaces the environment overrides.
const envPrefix = "URLREPORT_"

var formats = []string{"html", "json", "csv", "table"}

// Config holds the settings of one run. JSON keys keep the upper-case names of
// the legacy config file format.
type Config struct {
	ReportSize  int    `json:"REPORT_SIZE"`
	ReportDir   string `json:"REPORT_DIR"`
	LogDir      string `json:"LOG_DIR"`
	LogPattern  string `json:"LOG_PATTERN"`
	ReportName  string `json:"REPORT_NAME"`
	Format      string `json:"FORMAT"`
	Template    string `json:"TEMPLATE"`
	Workers     int    `json:"WORKERS"`
	Median      string `json:"MEDIAN"`
	NATSURL     string `json:"NATS_URL"`
	NATSSubject string `json:"NATS_SUBJECT"`
	MetricsFile string `json:"METRICS_FILE"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ReportSize:  1000,
		ReportDir:   "reports",
		LogDir:      "logs",
		ReportName:  "report",
		Format:      "html",
		Workers:     runtime.NumCPU(),
		Median:      analyzer.MedianExact.String(),
		NATSSubject: "urlreport.reports",
	}
}

// Load layers the JSON file at path and then the environment over Default.
// Keys absent from the file keep their defaults. When the file does not exist
// the returned error wraps os.ErrNotExist and the returned Config is still
// usable; any other error means the Config must not be used.
func Load(path string) (Config, error) {
	cfg := Default()

	var fileErr error
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			fileErr = fmt.Errorf("config %s: %w", path, err)
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, fileErr
}

func (c *Config) applyEnv() error {
	var errs []error
	c.ReportSize = getInt("REPORT_SIZE", c.ReportSize, &errs)
	c.ReportDir = getString("REPORT_DIR", c.ReportDir)
	c.LogDir = getString("LOG_DIR", c.LogDir)
	c.LogPattern = getString("LOG_PATTERN", c.LogPattern)
	c.ReportName = getString("REPORT_NAME", c.ReportName)
	c.Format = getString("FORMAT", c.Format)
	c.Template = getString("TEMPLATE", c.Template)
	c.Workers = getInt("WORKERS", c.Workers, &errs)
	c.Median = getString("MEDIAN", c.Median)
	c.NATSURL = getString("NATS_URL", c.NATSURL)
	c.NATSSubject = getString("NATS_SUBJECT", c.NATSSubject)
	c.MetricsFile = getString("METRICS_FILE", c.MetricsFile)
	return errors.Join(errs...)
}

// Validate checks ranges and the values that must parse.
func (c Config) Validate() error {
	var problems []string
	if c.ReportSize < 1 {
		problems = append(problems, fmt.Sprintf("report size %d must be positive", c.ReportSize))
	}
	if c.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workers %d must be positive", c.Workers))
	}
	if c.ReportDir == "" {
		problems = append(problems, "report dir is empty")
	}
	if c.LogDir == "" {
		problems = append(problems, "log dir is empty")
	}
	if c.ReportName == "" || strings.ContainsAny(c.ReportName, `/\`) {
		problems = append(problems, fmt.Sprintf("report name %q must be a plain file name", c.ReportName))
	}
	if !validFormat(c.Format) {
		problems = append(problems, fmt.Sprintf("format %q must be one of %s", c.Format, strings.Join(formats, ", ")))
	}
	if _, err := analyzer.ParseMedianMode(c.Median); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogPattern != "" {
		if _, err := regexp.Compile(c.LogPattern); err != nil {
			problems = append(problems, fmt.Sprintf("log pattern: %v", err))
		}
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		problems = append(problems, "nats subject is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Pattern compiles LogPattern, returning nil when it is empty.
func (c Config) Pattern() (*regexp.Regexp, error) {
	if c.LogPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.LogPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: log pattern: %v", ErrInvalid, err)
	}
	return re, nil
}

func validFormat(f string) bool {
	for _, known := range formats {
		if strings.EqualFold(f, known) {
			return true
		}
	}
	return false
}
