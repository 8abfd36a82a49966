package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/loganalyzer/urlreport/internal/analyzer"
	"github.com/loganalyzer/urlreport/internal/parser"
	"github.com/loganalyzer/urlreport/internal/report"
)

func sampleReport() report.Report {
	tbl := analyzer.NewTable(analyzer.MedianExact)
	tbl.Ingest("/a", 0.100)
	tbl.Ingest("/a", 0.300)
	tbl.Ingest("/b", 0.200)
	tbl.Ingest("/search?q=<script>", 0.050)

	return report.Build(analyzer.Summarize(tbl), report.Options{
		Size:       10,
		Sources:    []string{"logs/nginx-access-ui.log-20170630.gz"},
		Lines:      parser.LineStats{Total: 5, Matched: 4, Skipped: 1},
		MedianMode: analyzer.MedianExact,
		Now:        time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	})
}

func emptyReport() report.Report {
	return report.Build(analyzer.Summarize(analyzer.NewTable(analyzer.MedianExact)), report.Options{})
}

func TestHTML(t *testing.T) {
	h, err := NewHTML("")
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}
	var buf bytes.Buffer
	if err := h.Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	checks := []string{
		"<table class=\"rows\">",
		"<td>/a</td>",
		"<td class=\"num\">61.54</td>",
		"<td class=\"num\">0.400</td>",
		"<td class=\"num\">0.200</td>",
		"nginx-access-ui.log-20170630.gz",
		"5 total, 4 matched, 1 skipped",
		"2024-03-15 10:00:00 UTC",
		"<svg",
		"Most requested",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("html output missing %q", check)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("html output contains an unescaped path")
	}
	if strings.Index(out, "<td>/a</td>") > strings.Index(out, "<td>/b</td>") {
		t.Error("/a should be ranked above /b")
	}
}

func TestHTMLEmpty(t *testing.T) {
	h, err := NewHTML("")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := h.Render(&buf, emptyReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "No matching requests.") {
		t.Error("empty report should say there are no requests")
	}
	if strings.Contains(buf.String(), "<svg") {
		t.Error("empty report should not have a chart")
	}
}

func TestHTMLCustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.html")
	tmpl := `{{range .Rows}}{{.Path}}={{ftoa .TimeSum}};{{end}}`
	if err := os.WriteFile(path, []byte(tmpl), 0644); err != nil {
		t.Fatal(err)
	}

	h, err := NewHTML(path)
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}
	var buf bytes.Buffer
	if err := h.Render(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}
	want := "/a=0.400;/b=0.200;/search?q=&lt;script&gt;=0.050;"
	if buf.String() != want {
		t.Errorf("custom template output = %q, want %q", buf.String(), want)
	}
}

func TestHTMLTemplateErrors(t *testing.T) {
	if _, err := NewHTML(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("expected error for missing template")
	}

	path := filepath.Join(t.TempDir(), "broken.html")
	if err := os.WriteFile(path, []byte("{{range}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewHTML(path); err == nil {
		t.Error("expected error for broken template")
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSON{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}

	var out report.Report
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out.Rows) != 3 || out.Rows[0].Path != "/a" {
		t.Errorf("rows = %+v, want /a first of 3", out.Rows)
	}
	if !strings.Contains(buf.String(), `"url": "/a"`) {
		t.Error("JSON rows should use the url key")
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := (CSV{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	// Header + 3 rows.
	if len(records) != 4 {
		t.Fatalf("CSV rows = %d, want 4", len(records))
	}
	if records[0][0] != "url" || records[0][7] != "time_med" {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"/a", "2", "50.00", "0.400", "61.54", "0.200", "0.300", "0.200"}
	for i := range want {
		if records[1][i] != want[i] {
			t.Errorf("row[%d] = %q, want %q", i, records[1][i], want[i])
		}
	}
}

func TestCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := (CSV{}).Render(&buf, emptyReport()); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("empty CSV should be only a header, got %q", buf.String())
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := (Table{}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	checks := []string{
		"URL latency report",
		"Matched requests:",
		"Distinct URLs:",
		"time_perc",
		"/a",
		"0.400",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("table output missing %q", check)
		}
	}
}

func TestNew(t *testing.T) {
	for _, f := range Formats {
		if _, err := New(f, ""); err != nil {
			t.Errorf("New(%q): %v", f, err)
		}
	}
	if _, err := New("xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{"html": ".html", "": ".html", "json": ".json", "CSV": ".csv", "table": ".txt"}
	for format, want := range tests {
		if got := Extension(format); got != want {
			t.Errorf("Extension(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(&buf)

	pb.Update(1, 3, "file1.log", 10)
	pb.Update(2, 3, "file2.log", 20)
	pb.Update(3, 3, "file3.log", 30)

	out := buf.String()
	if !strings.Contains(out, "100%") {
		t.Error("progress bar should show 100% at completion")
	}
	if !strings.Contains(out, "3/3 sources, 60 lines") {
		t.Errorf("progress bar should show totals at completion, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("progress bar should end the line when done")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		head string
		tail string
	}{
		{"/short", 10, "/short", "/short"},
		{"/abcdefghij", 8, "/abcd...", "...fghij"},
		{"/päth/ünïcode", 8, "/päth...", "...ïcode"},
		{"/日本語日本語日本語", 6, "/日本...", "...日本語"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := truncateHead(tt.in, tt.n); got != tt.head {
				t.Errorf("truncateHead = %q, want %q", got, tt.head)
			}
			if got := truncateTail(tt.in, tt.n); got != tt.tail {
				t.Errorf("truncateTail = %q, want %q", got, tt.tail)
			}
		})
	}
}

func TestProgressBarMultibyteSource(t *testing.T) {
	var buf bytes.Buffer
	NewProgressBar(&buf).Update(1, 1, "/var/log/журнал/"+strings.Repeat("доступ", 10)+".log", 5)
	if !utf8.ValidString(buf.String()) {
		t.Errorf("progress output is not valid UTF-8: %q", buf.String())
	}
}

func TestHTMLMultibyteChartLabel(t *testing.T) {
	tbl := analyzer.NewTable(analyzer.MedianExact)
	tbl.Ingest("/каталог/"+strings.Repeat("товар", 10), 0.5)
	r := report.Build(analyzer.Summarize(tbl), report.Options{})

	svg, ok := timeChart(r)
	if !ok {
		t.Fatal("expected a chart")
	}
	if !utf8.ValidString(svg) {
		t.Error("chart SVG is not valid UTF-8")
	}
}
