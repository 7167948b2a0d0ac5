// Package geo converts flat tables into geospatial form and coerces tables
// between coordinate reference systems.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// EPSG codes the pipeline works in: geographic long/lat for ingestion and
// the British National Grid for anything that measures in metres.
const (
	EPSGWGS84               = 4326
	EPSGBritishNationalGrid = 27700
)

// supportedEPSG is the closed set of codes a table may be normalized
// between. Anything else is a CRS mismatch, never a silent pass-through.
var supportedEPSG = map[int]bool{
	EPSGWGS84:               true,
	EPSGBritishNationalGrid: true,
}

// Normalize coerces a table to the target EPSG code. It is a no-op when the
// table already matches (idempotent), reprojects every geometry column
// otherwise, and fails with a CrsMismatchError when the table carries no
// CRS tag or no transform exists between the two codes. After reprojection
// every geometry must report the target SRID; if not, the coercion is
// treated as failed rather than silently ignored.
func Normalize(t *geotable.Table, epsg int) error {
	if !supportedEPSG[epsg] {
		return eris.Wrapf(&geotable.CrsMismatchError{From: t.EPSG, To: epsg},
			"geo: normalize table %q", t.Name)
	}
	if t.EPSG == epsg {
		return nil
	}
	if t.EPSG == 0 || !supportedEPSG[t.EPSG] {
		return eris.Wrapf(&geotable.CrsMismatchError{From: t.EPSG, To: epsg},
			"geo: normalize table %q", t.Name)
	}

	zap.L().Info("geo: transforming table CRS",
		zap.String("table", t.Name),
		zap.Int("from_epsg", t.EPSG),
		zap.Int("to_epsg", epsg),
	)

	f := wgs84.EPSG().Transform(t.EPSG, epsg)

	for _, name := range t.GeometryColumns() {
		geoms := t.GeometryColumn(name)
		for i, g := range geoms {
			if g == nil {
				continue
			}
			ng, err := reproject(g, f, epsg)
			if err != nil {
				return eris.Wrapf(err, "geo: normalize table %q column %q row %d", t.Name, name, i)
			}
			geoms[i] = ng
		}
	}
	t.EPSG = epsg

	// Post-condition: every non-nil geometry reports the target SRID.
	for _, name := range t.GeometryColumns() {
		for _, g := range t.GeometryColumn(name) {
			if g != nil && g.SRID() != epsg {
				return eris.Wrapf(&geotable.CrsMismatchError{From: g.SRID(), To: epsg},
					"geo: normalize table %q post-check", t.Name)
			}
		}
	}
	return nil
}

// reproject rebuilds a geometry with every coordinate pushed through the
// transform. Only points and polygons flow through this pipeline.
func reproject(g geom.T, f wgs84.Func, epsg int) (geom.T, error) {
	switch s := g.(type) {
	case *geom.Point:
		x, y, _ := f(s.X(), s.Y(), 0)
		if math.IsNaN(x) || math.IsNaN(y) {
			return nil, eris.Errorf("transform produced NaN for point (%v, %v)", s.X(), s.Y())
		}
		return geom.NewPointFlat(geom.XY, []float64{x, y}).SetSRID(epsg), nil

	case *geom.Polygon:
		flat := s.FlatCoords()
		out := make([]float64, len(flat))
		for i := 0; i+1 < len(flat); i += 2 {
			x, y, _ := f(flat[i], flat[i+1], 0)
			if math.IsNaN(x) || math.IsNaN(y) {
				return nil, eris.Errorf("transform produced NaN for polygon vertex (%v, %v)", flat[i], flat[i+1])
			}
			out[i], out[i+1] = x, y
		}
		ends := append([]int(nil), s.Ends()...)
		return geom.NewPolygonFlat(geom.XY, out, ends).SetSRID(epsg), nil

	default:
		return nil, eris.Errorf("unsupported geometry type %T", g)
	}
}
