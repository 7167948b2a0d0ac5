package pipeline

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// ExportCSV writes a table as a CSV file, header first.
func ExportCSV(t *geotable.Table, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "pipeline export: create file")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(t.Columns); err != nil {
		return eris.Wrap(err, "pipeline export: write header")
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "pipeline export: write row")
		}
	}

	return w.Error()
}
