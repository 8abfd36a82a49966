package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/loganalyzer/urlreport/internal/report"
)

// Table renders a plain-text summary followed by the ranked rows.
type Table struct{}

// Render writes r to w.
func (Table) Render(w io.Writer, r report.Report) error {
	line := strings.Repeat("=", 70)

	fmt.Fprintf(w, "\n%s\n  URL latency report %s\n%s\n", line, r.RunID, line)
	for _, src := range r.Sources {
		fmt.Fprintf(w, "  %-30s %s\n", "Source:", src)
	}
	fmt.Fprintf(w, "  %-30s %d\n", "Total lines:", r.Lines.Total)
	fmt.Fprintf(w, "  %-30s %d\n", "Matched requests:", r.Lines.Matched)
	fmt.Fprintf(w, "  %-30s %d\n", "Skipped (unparsed) lines:", r.Lines.Skipped)
	if r.Lines.Filtered > 0 {
		fmt.Fprintf(w, "  %-30s %d\n", "Filtered lines:", r.Lines.Filtered)
	}
	fmt.Fprintf(w, "  %-30s %d\n", "Distinct URLs:", r.Paths)
	fmt.Fprintf(w, "  %-30s %s\n", "Total time (s):", ftoa(r.Totals.TimeSum))
	fmt.Fprintf(w, "  %-30s %s\n\n", "Median mode:", r.MedianMode)

	table := tablewriter.NewWriter(w)
	table.SetHeader(csvHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range r.Rows {
		table.Append([]string{
			row.Path,
			utoa(row.Count),
			ptoa(row.CountPerc),
			ftoa(row.TimeSum),
			ptoa(row.TimePerc),
			ftoa(row.TimeAvg),
			ftoa(row.TimeMax),
			ftoa(row.TimeMed),
		})
	}
	table.Render()

	_, err := fmt.Fprintln(w)
	return err
}
