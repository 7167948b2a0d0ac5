package geo

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// GeometryColumn is the name given to the point geometry built by FromXY.
const GeometryColumn = "geometry"

// FromXY turns a flat table into a geospatial one by building a point per
// row from two numeric columns and tagging the table with the given EPSG
// code. Rows whose coordinate values are missing or non-numeric get a null
// geometry so they can be filtered downstream. When the table already
// carried a different CRS tag, the coordinates are read in that CRS and the
// result is reprojected to the requested one before returning.
func FromXY(t *geotable.Table, xCol, yCol string, epsg int) error {
	xi := t.ColumnIndex(xCol)
	yi := t.ColumnIndex(yCol)
	if xi < 0 || yi < 0 {
		return eris.Errorf("geo: table %q is missing coordinate column %q or %q", t.Name, xCol, yCol)
	}

	srcEPSG := epsg
	if t.EPSG != 0 {
		srcEPSG = t.EPSG
	}

	geoms := make([]geom.T, len(t.Rows))
	var nulls int
	for i, row := range t.Rows {
		x, errX := strconv.ParseFloat(row[xi], 64)
		y, errY := strconv.ParseFloat(row[yi], 64)
		if errX != nil || errY != nil {
			geoms[i] = nil
			nulls++
			continue
		}
		geoms[i] = geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(srcEPSG)
	}

	if err := t.SetGeometry(GeometryColumn, geoms); err != nil {
		return eris.Wrapf(err, "geo: convert table %q", t.Name)
	}
	if t.EPSG == 0 {
		t.EPSG = epsg
	}

	if nulls > 0 {
		zap.L().Debug("geo: rows without valid coordinates",
			zap.String("table", t.Name),
			zap.Int("null_geometries", nulls),
		)
	}

	// The first tag assignment can leave the table in a CRS other than the
	// requested one; re-project before returning.
	if t.EPSG != epsg {
		if err := Normalize(t, epsg); err != nil {
			return err
		}
	}
	return nil
}
