package loader

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geo"
	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// LoadStops loads the first transit-stop CSV found in the directory, by
// sorted listing order, and converts it to geospatial form. Only the first
// file is used; when more candidates exist the extras are skipped with a
// warning rather than silently merged.
func LoadStops(ctx context.Context, opts Options) (*geotable.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "loader: stops load cancelled")
	}

	files, err := listCSVFiles(opts.Dir)
	if err != nil {
		return nil, eris.Wrap(&geotable.MissingInputError{Path: opts.Dir}, "loader: stops directory")
	}
	if len(files) == 0 {
		return nil, eris.Wrap(&geotable.MissingInputError{Path: opts.Dir}, "loader: no stops CSV files")
	}

	log := zap.L().With(zap.String("component", "loader.stops"))
	if len(files) > 1 {
		log.Warn("multiple stops files found, loading the first only",
			zap.String("used", files[0]),
			zap.Int("skipped", len(files)-1),
		)
	}

	file := files[0]
	log.Info("reading stops file", zap.String("file", file))

	t, err := ReadTable(filepath.Join(opts.Dir, file))
	if err != nil {
		return nil, err
	}
	if err := geo.FromXY(t, opts.XCol, opts.YCol, opts.EPSG); err != nil {
		return nil, err
	}

	if opts.ExportGeo {
		out := filepath.Join(opts.Dir, exportName(opts.ExportPrefix, file))
		log.Info("exporting geospatial stops data", zap.String("file", filepath.Base(out)))
		if err := WriteShapefile(t, out); err != nil {
			return nil, err
		}
	}

	return t, nil
}
