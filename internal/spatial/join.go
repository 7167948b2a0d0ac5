package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// RightSuffix is appended to right-side column names that collide with a
// left-side name in the joined schema.
const RightSuffix = "_right"

// WithinJoin performs an inner containment join: one output row per
// (point, polygon) pair where the left table's point lies within the right
// table's polygon. One point may match several overlapping polygons and one
// polygon many points; the fan-out is intentional. Both tables must carry
// the same EPSG tag, and the right table must have exactly one geometry
// column, polygon-typed and active; a residual point column has to be
// dropped before joining. Null geometries on either side never match.
//
// The joined table carries both sides' attribute columns and no geometry.
func WithinJoin(points, polys *geotable.Table) (*geotable.Table, error) {
	if points.EPSG == 0 || points.EPSG != polys.EPSG {
		return nil, eris.Wrapf(&geotable.CrsMismatchError{From: points.EPSG, To: polys.EPSG},
			"spatial: join %q within %q", points.Name, polys.Name)
	}
	if cols := polys.GeometryColumns(); len(cols) != 1 {
		return nil, eris.Errorf("spatial: table %q has %d geometry columns, drop extras before joining",
			polys.Name, len(cols))
	}

	pointGeoms := points.Geometry()
	polyGeoms := polys.Geometry()
	if pointGeoms == nil || polyGeoms == nil {
		return nil, eris.Errorf("spatial: join requires geometry on both tables")
	}

	// Precompute polygon rings and bounding boxes for the scan.
	type candidate struct {
		row    int
		ring   []float64
		bounds *geom.Bounds
	}
	candidates := make([]candidate, 0, len(polyGeoms))
	for i, g := range polyGeoms {
		poly, ok := g.(*geom.Polygon)
		if !ok {
			if g == nil {
				continue
			}
			return nil, eris.Errorf("spatial: table %q active geometry is %T, want polygon", polys.Name, g)
		}
		candidates = append(candidates, candidate{
			row:    i,
			ring:   poly.FlatCoords()[:poly.Ends()[0]],
			bounds: poly.Bounds(),
		})
	}

	out := geotable.New(points.Name+"_within_"+polys.Name, joinedColumns(points.Columns, polys.Columns))
	out.EPSG = points.EPSG

	for i, g := range pointGeoms {
		if g == nil {
			continue
		}
		p, ok := g.(*geom.Point)
		if !ok {
			return nil, eris.Wrapf(&geotable.InvalidGeometryError{Table: points.Name, Row: i, Column: points.ActiveGeometry()},
				"spatial: join expects points on the left side, got %T", g)
		}
		x, y := p.X(), p.Y()
		for _, c := range candidates {
			if x < c.bounds.Min(0) || x > c.bounds.Max(0) || y < c.bounds.Min(1) || y > c.bounds.Max(1) {
				continue
			}
			if !xy.IsPointInRing(geom.XY, geom.Coord{x, y}, c.ring) {
				continue
			}
			row := make([]string, 0, len(out.Columns))
			row = append(row, points.Rows[i]...)
			row = append(row, polys.Rows[c.row]...)
			out.AppendRow(row)
		}
	}

	zap.L().Info("spatial: containment join complete",
		zap.String("points", points.Name),
		zap.String("polygons", polys.Name),
		zap.Int("joined_rows", out.Len()),
	)
	return out, nil
}

// joinedColumns concatenates the two schemas, suffixing right-side names
// that collide with a left-side name.
func joinedColumns(left, right []string) []string {
	out := make([]string, 0, len(left)+len(right))
	taken := make(map[string]bool, len(left))
	for _, c := range left {
		taken[c] = true
		out = append(out, c)
	}
	for _, c := range right {
		if taken[c] {
			c += RightSuffix
		}
		out = append(out, c)
	}
	return out
}
