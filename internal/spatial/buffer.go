// Package spatial implements the geometric stages of the pipeline: point
// buffering, containment joins, and per-group aggregation.
package spatial

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geo"
	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// BufferPrefix is prepended to the buffered column's name.
const BufferPrefix = "buffered_"

// Buffer adds a polygon geometry column approximating the disc of the given
// radius around each point in geomCol. Buffering is only meaningful in a
// projected CRS, so the table is first normalized to metricEPSG; the
// normalization fails loudly when the coercion cannot be verified. The new
// column is named BufferPrefix+geomCol. Null points buffer to null.
func Buffer(t *geotable.Table, radius float64, geomCol string, metricEPSG int, segments int) error {
	if radius <= 0 {
		return eris.Errorf("spatial: buffer radius must be positive, got %v", radius)
	}
	if segments < 8 {
		segments = 8
	}

	if err := geo.Normalize(t, metricEPSG); err != nil {
		return eris.Wrapf(err, "spatial: buffer table %q", t.Name)
	}

	points := t.GeometryColumn(geomCol)
	if points == nil {
		return eris.Errorf("spatial: table %q has no geometry column %q", t.Name, geomCol)
	}

	zap.L().Info("spatial: applying point buffer",
		zap.String("table", t.Name),
		zap.Float64("radius_m", radius),
		zap.Int("points", len(points)),
	)

	polys := make([]geom.T, len(points))
	var buffered int
	for i, g := range points {
		if g == nil {
			polys[i] = nil
			continue
		}
		p, ok := g.(*geom.Point)
		if !ok {
			return eris.Wrapf(&geotable.InvalidGeometryError{Table: t.Name, Row: i, Column: geomCol},
				"spatial: buffer expects points, got %T", g)
		}
		polys[i] = discPolygon(p.X(), p.Y(), radius, segments, metricEPSG)
		buffered++
	}

	if err := t.SetGeometry(BufferPrefix+geomCol, polys); err != nil {
		return eris.Wrapf(err, "spatial: buffer table %q", t.Name)
	}

	zap.L().Info("spatial: buffer created",
		zap.String("table", t.Name),
		zap.String("column", BufferPrefix+geomCol),
		zap.Int("buffered", buffered),
	)
	return nil
}

// discPolygon builds a closed counter-clockwise ring of n vertices on the
// circle of the given radius. Vertices lie on the circle, so boundary
// points at exactly the radius fall marginally outside the polygon.
func discPolygon(cx, cy, radius float64, n, epsg int) *geom.Polygon {
	flat := make([]float64, 0, (n+1)*2)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		flat = append(flat, cx+radius*math.Cos(a), cy+radius*math.Sin(a))
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(epsg)
}
