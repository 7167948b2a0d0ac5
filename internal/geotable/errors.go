package geotable

import "fmt"

// CrsMismatchError reports a table whose CRS could not be coerced to the
// requested EPSG code, either because the source tag is missing or because
// no transform exists between the two codes.
type CrsMismatchError struct {
	From int // 0 means the table carried no CRS tag
	To   int
}

func (e *CrsMismatchError) Error() string {
	if e.From == 0 {
		return fmt.Sprintf("crs mismatch: table has no CRS tag, want EPSG:%d", e.To)
	}
	return fmt.Sprintf("crs mismatch: could not convert EPSG:%d to EPSG:%d", e.From, e.To)
}

// InvalidGeometryError reports a row whose coordinate columns could not be
// turned into a point geometry.
type InvalidGeometryError struct {
	Table  string
	Row    int
	Column string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry: table %q row %d column %q", e.Table, e.Row, e.Column)
}

// MissingInputError reports an input path that does not exist, is empty, or
// contains no eligible files.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input: %s", e.Path)
}
