package output

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/loganalyzer/urlreport/internal/report"
)

//go:embed templates/report.html
var defaultTemplate string

// chartBars caps the number of bars in the report chart.
const chartBars = 15

// chartLabelLen caps bar label length.
const chartLabelLen = 28

const (
	barWidth   = 40
	barSpacing = 20
)

// labelSanitizer drops markup characters, since chart labels are written
// into the SVG unescaped.
var labelSanitizer = strings.NewReplacer("<", "", ">", "", "&", "", `"`, "", "'", "")

var templateFuncs = template.FuncMap{
	"ftoa": ftoa,
	"ptoa": ptoa,
	"inc":  func(i int) int { return i + 1 },
}

// HTML renders the report through an html/template.
type HTML struct {
	tmpl *template.Template
}

type htmlData struct {
	report.Report
	Chart template.HTML
}

// NewHTML parses the template at path, or the built-in one when path is empty.
func NewHTML(path string) (*HTML, error) {
	name, text := "report.html", defaultTemplate
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		name, text = filepath.Base(path), string(b)
	}

	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// Render writes r to w.
func (h *HTML) Render(w io.Writer, r report.Report) error {
	data := htmlData{Report: r}
	if svg, ok := timeChart(r); ok {
		data.Chart = template.HTML(svg)
	}
	return h.tmpl.Execute(w, data)
}

// timeChart draws the total time of the leading rows as an SVG bar chart.
// It reports false when there is nothing to draw.
func timeChart(r report.Report) (string, bool) {
	rows := r.Rows
	if len(rows) > chartBars {
		rows = rows[:chartBars]
	}

	var bars []chart.Value
	var peak float64
	for _, row := range rows {
		label := truncateHead(labelSanitizer.Replace(row.Path), chartLabelLen)
		bars = append(bars, chart.Value{Value: row.TimeSum, Label: label})
		peak = max(peak, row.TimeSum)
	}
	if len(bars) == 0 || peak == 0 {
		return "", false
	}

	graph := chart.BarChart{
		Title:      "Total time by URL, seconds",
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      max(1024, len(bars)*(barWidth+barSpacing)+120),
		Height:     360,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		// Bars start at zero instead of at the smallest value.
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: peak}},
		Bars:  bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return "", false
	}
	return buf.String(), true
}
