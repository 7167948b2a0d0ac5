package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geo"
	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// Options configures a load: where the source files live, which columns
// hold the coordinate pair, which EPSG code those coordinates are in, and
// whether each converted table is exported in geospatial form alongside
// its source.
type Options struct {
	Dir          string
	XCol         string
	YCol         string
	EPSG         int
	ExportGeo    bool
	ExportPrefix string
}

// CrimeData is the result of loading a crime-data directory tree: the
// individual converted tables keyed by year then dataset name, and the
// single table formed by concatenating all of them (schema union).
type CrimeData struct {
	ByYear   map[string]map[string]*geotable.Table
	Combined *geotable.Table
}

// LoadCrimeData walks a directory tree with one subdirectory per year-month
// period (named YYYY-MM), loads every CSV inside, converts each to
// geospatial form, and accumulates both the keyed collection and the
// combined table. Directories and files are processed in sorted listing
// order so runs are deterministic. A progress counter advances per
// directory. An empty tree is a missing-input failure fast, naming the path.
func LoadCrimeData(ctx context.Context, opts Options) (*CrimeData, error) {
	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, eris.Wrap(&geotable.MissingInputError{Path: opts.Dir}, "loader: crime data root")
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 0 {
		return nil, eris.Wrap(&geotable.MissingInputError{Path: opts.Dir}, "loader: no period directories")
	}

	log := zap.L().With(zap.String("component", "loader.crime"))
	log.Info("loading crime data", zap.String("dir", opts.Dir), zap.Int("periods", len(dirs)))

	bar := progressbar.NewOptions(len(dirs),
		progressbar.OptionSetDescription("reading crime data"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	data := &CrimeData{ByYear: make(map[string]map[string]*geotable.Table)}
	var all []*geotable.Table

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "loader: crime data load cancelled")
		}

		// Period directories are named YYYY-MM; the year keys the outer map.
		year := dir
		if len(year) > 4 {
			year = year[:4]
		}
		if data.ByYear[year] == nil {
			data.ByYear[year] = make(map[string]*geotable.Table)
		}

		path := filepath.Join(opts.Dir, dir)
		files, err := listCSVFiles(path)
		if err != nil {
			return nil, err
		}

		for _, file := range files {
			bar.Describe(fmt.Sprintf("reading %s", file))

			t, err := ReadTable(filepath.Join(path, file))
			if err != nil {
				return nil, err
			}
			if err := geo.FromXY(t, opts.XCol, opts.YCol, opts.EPSG); err != nil {
				return nil, err
			}

			if opts.ExportGeo {
				out := filepath.Join(path, exportName(opts.ExportPrefix, file))
				if err := WriteShapefile(t, out); err != nil {
					return nil, err
				}
			}

			dataset := strings.TrimSuffix(file, filepath.Ext(file))
			data.ByYear[year][dataset] = t
			all = append(all, t)
		}

		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if len(all) == 0 {
		return nil, eris.Wrap(&geotable.MissingInputError{Path: opts.Dir}, "loader: no crime CSV files")
	}

	combined, err := geotable.Concat("combined_crime_data", all...)
	if err != nil {
		return nil, eris.Wrap(err, "loader: combine crime tables")
	}
	data.Combined = combined

	log.Info("crime data loaded",
		zap.Int("tables", len(all)),
		zap.Int("offences", combined.Len()),
	)
	return data, nil
}

// exportName maps a source basename to its geospatial export basename.
func exportName(prefix, file string) string {
	return prefix + strings.TrimSuffix(file, filepath.Ext(file)) + ".shp"
}
