// Package loader reads the delimited crime-incident and transit-stop source
// files from disk and converts them into geospatial tables.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// ReadTable parses a delimited text file into a table. The first record is
// the header; data rows are padded or truncated to the header width.
func ReadTable(path string) (*geotable.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Wrap(&geotable.MissingInputError{Path: path}, "loader: empty file")
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read header of %s", path)
	}
	for i, c := range header {
		header[i] = strings.TrimSpace(c)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t := geotable.New(name, header)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read row of %s", path)
		}
		t.AppendRow(record)
	}

	return t, nil
}

// listCSVFiles returns the names of the CSV files directly inside dir, in
// sorted listing order.
func listCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read directory %s", dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
