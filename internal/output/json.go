package output

import (
	"encoding/json"
	"io"

	"github.com/loganalyzer/urlreport/internal/report"
)

// JSON renders the report as indented JSON.
type JSON struct{}

// Render writes r to w.
func (JSON) Render(w io.Writer, r report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
