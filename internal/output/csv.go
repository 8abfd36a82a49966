package output

import (
	"encoding/csv"
	"io"

	"github.com/loganalyzer/urlreport/internal/report"
)

var csvHeader = []string{
	"url", "count", "count_perc", "time_sum", "time_perc", "time_avg", "time_max", "time_med",
}

// CSV renders one record per selected row.
type CSV struct{}

// Render writes r to w.
func (CSV) Render(w io.Writer, r report.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		rec := []string{
			row.Path,
			utoa(row.Count),
			ptoa(row.CountPerc),
			ftoa(row.TimeSum),
			ptoa(row.TimePerc),
			ftoa(row.TimeAvg),
			ftoa(row.TimeMax),
			ftoa(row.TimeMed),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
