// Package geotable holds the in-memory geospatial table model the pipeline
// stages pass between each other: ordered attribute rows, one or more named
// geometry columns of which exactly one is active, and a single EPSG tag
// shared by every geometry in the table.
package geotable

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Table is an ordered collection of rows with string-valued attribute
// columns and named geometry columns. An empty string is a null attribute
// value; a nil geometry is a null geometry.
type Table struct {
	Name    string
	EPSG    int
	Columns []string
	Rows    [][]string

	colIdx   map[string]int
	geometry map[string][]geom.T
	active   string
}

// New returns an empty table with the given attribute columns.
func New(name string, columns []string) *Table {
	t := &Table{
		Name:     name,
		Columns:  append([]string(nil), columns...),
		colIdx:   make(map[string]int, len(columns)),
		geometry: make(map[string][]geom.T),
	}
	for i, c := range columns {
		if _, ok := t.colIdx[c]; !ok {
			t.colIdx[c] = i
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the index of an attribute column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.colIdx[name]; ok {
		return i
	}
	return -1
}

// Value returns the attribute value at (row, column), or "" when the column
// is absent.
func (t *Table) Value(row int, column string) string {
	i := t.ColumnIndex(column)
	if i < 0 {
		return ""
	}
	return t.Rows[row][i]
}

// AppendRow adds a row, padded or truncated to the column count.
func (t *Table) AppendRow(values []string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// SetGeometry stores a named geometry column. The first geometry column set
// becomes the active one.
func (t *Table) SetGeometry(name string, geoms []geom.T) error {
	if len(geoms) != len(t.Rows) {
		return eris.Errorf("geotable: geometry column %q has %d entries for %d rows", name, len(geoms), len(t.Rows))
	}
	t.geometry[name] = geoms
	if t.active == "" {
		t.active = name
	}
	return nil
}

// Geometry returns the active geometry column, or nil when the table has no
// geometry.
func (t *Table) Geometry() []geom.T {
	if t.active == "" {
		return nil
	}
	return t.geometry[t.active]
}

// ActiveGeometry returns the name of the active geometry column.
func (t *Table) ActiveGeometry() string { return t.active }

// UseGeometry makes a stored geometry column the active one.
func (t *Table) UseGeometry(name string) error {
	if _, ok := t.geometry[name]; !ok {
		return eris.Errorf("geotable: no geometry column %q in table %q", name, t.Name)
	}
	t.active = name
	return nil
}

// DropGeometry removes a stored geometry column. Dropping the active column
// leaves the table without an active geometry until UseGeometry is called.
func (t *Table) DropGeometry(name string) error {
	if _, ok := t.geometry[name]; !ok {
		return eris.Errorf("geotable: no geometry column %q in table %q", name, t.Name)
	}
	delete(t.geometry, name)
	if t.active == name {
		t.active = ""
	}
	return nil
}

// GeometryColumn returns a stored geometry column by name, or nil.
func (t *Table) GeometryColumn(name string) []geom.T {
	return t.geometry[name]
}

// GeometryColumns returns the stored geometry column names, sorted.
func (t *Table) GeometryColumns() []string {
	names := make([]string, 0, len(t.geometry))
	for name := range t.geometry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DropNullGeometry returns a copy of the table without the rows whose active
// geometry is null, together with the number of rows dropped.
func (t *Table) DropNullGeometry() (*Table, int) {
	out := New(t.Name, t.Columns)
	out.EPSG = t.EPSG

	// A table without geometry has no null rows to drop.
	if t.active == "" {
		for _, row := range t.Rows {
			out.AppendRow(row)
		}
		return out, 0
	}

	geoms := t.Geometry()
	kept := make([]geom.T, 0, len(geoms))
	for i, g := range geoms {
		if g == nil {
			continue
		}
		out.AppendRow(t.Rows[i])
		kept = append(kept, g)
	}
	_ = out.SetGeometry(t.active, kept)
	return out, t.Len() - out.Len()
}

// Concat concatenates tables into one, taking the union of their attribute
// schemas; values for columns a source table lacks become null. All tables
// must agree on their EPSG tag and active geometry column name.
func Concat(name string, tables ...*Table) (*Table, error) {
	var columns []string
	seen := make(map[string]bool)
	epsg := 0
	geomCol := ""

	for _, src := range tables {
		for _, c := range src.Columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
		if src.EPSG != 0 {
			if epsg != 0 && src.EPSG != epsg {
				return nil, eris.Wrapf(&CrsMismatchError{From: src.EPSG, To: epsg},
					"geotable: concat table %q", src.Name)
			}
			epsg = src.EPSG
		}
		if src.ActiveGeometry() != "" {
			if geomCol != "" && src.ActiveGeometry() != geomCol {
				return nil, eris.Errorf("geotable: concat geometry column mismatch: %q vs %q",
					src.ActiveGeometry(), geomCol)
			}
			geomCol = src.ActiveGeometry()
		}
	}

	out := New(name, columns)
	out.EPSG = epsg

	var geoms []geom.T
	for _, src := range tables {
		srcGeoms := src.Geometry()
		for i := range src.Rows {
			row := make([]string, len(columns))
			for j, c := range src.Columns {
				row[out.colIdx[c]] = src.Rows[i][j]
			}
			out.Rows = append(out.Rows, row)
			if srcGeoms != nil {
				geoms = append(geoms, srcGeoms[i])
			} else {
				geoms = append(geoms, nil)
			}
		}
	}

	if geomCol != "" {
		if err := out.SetGeometry(geomCol, geoms); err != nil {
			return nil, err
		}
	}
	return out, nil
}
