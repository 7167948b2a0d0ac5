package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// DBF format limits: 10-byte field names, string fields up to 254 bytes.
const (
	dbfNameLen  = 10
	dbfValueLen = 254
)

// WriteShapefile exports a point-geometry table as an ESRI shapefile with
// every attribute column carried as a DBF string field. Rows with a null
// geometry are skipped.
func WriteShapefile(t *geotable.Table, path string) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "loader: create shapefile %s", path)
	}
	if err := w.SetFields(dbfFields(t.Columns)); err != nil {
		w.Close()
		return eris.Wrapf(err, "loader: set dbf fields for %s", path)
	}

	geoms := t.Geometry()
	if geoms == nil {
		w.Close()
		return eris.Errorf("loader: table %q has no geometry to export", t.Name)
	}

	var written int
	for i, g := range geoms {
		p, ok := g.(*geom.Point)
		if !ok {
			continue
		}
		w.Write(&shp.Point{X: p.X(), Y: p.Y()})
		for j := range t.Columns {
			v := t.Rows[i][j]
			if len(v) > dbfValueLen {
				v = v[:dbfValueLen]
			}
			if err := w.WriteAttribute(written, j, v); err != nil {
				w.Close()
				return eris.Wrapf(err, "loader: write attribute row %d", written)
			}
		}
		written++
	}
	w.Close()

	// go-shp writes the attribute table to basename+"dbf" with no extension
	// dot, where no shapefile reader will look for it. Move it to the
	// conventional sidecar name.
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "loader: rename dbf sidecar for %s", path)
	}
	return nil
}

// dbfFields builds string-typed DBF fields from the column names, truncated
// to the format's 10-byte limit and uniquified when truncation collides.
func dbfFields(columns []string) []shp.Field {
	fields := make([]shp.Field, len(columns))
	taken := make(map[string]bool, len(columns))
	for i, c := range columns {
		name := c
		if len(name) > dbfNameLen {
			name = name[:dbfNameLen]
		}
		for n := 2; taken[name]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			base := c
			if len(base) > dbfNameLen-len(suffix) {
				base = base[:dbfNameLen-len(suffix)]
			}
			name = base + suffix
		}
		taken[name] = true
		fields[i] = shp.StringField(name, dbfValueLen)
	}
	return fields
}
