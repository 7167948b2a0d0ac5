package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

func TestFromXYRoundTrip(t *testing.T) {
	tbl := geotable.New("crimes", []string{"Longitude", "Latitude", "Crime type"})
	tbl.AppendRow([]string{"-2.2426", "53.4808", "Burglary"})
	tbl.AppendRow([]string{"0.1276", "51.5072", "Theft"})

	require.NoError(t, FromXY(tbl, "Longitude", "Latitude", EPSGWGS84))

	assert.Equal(t, EPSGWGS84, tbl.EPSG)
	geoms := tbl.Geometry()
	require.Len(t, geoms, 2)

	p0 := geoms[0].(*geom.Point)
	assert.InDelta(t, -2.2426, p0.X(), 1e-9, "coordinates survive the conversion")
	assert.InDelta(t, 53.4808, p0.Y(), 1e-9)
	assert.Equal(t, EPSGWGS84, p0.SRID())
}

func TestFromXYInvalidCoordinatesBecomeNull(t *testing.T) {
	tbl := geotable.New("crimes", []string{"Longitude", "Latitude"})
	tbl.AppendRow([]string{"-2.24", "53.48"})
	tbl.AppendRow([]string{"", ""})
	tbl.AppendRow([]string{"not-a-number", "53.48"})

	require.NoError(t, FromXY(tbl, "Longitude", "Latitude", EPSGWGS84))

	geoms := tbl.Geometry()
	require.Len(t, geoms, 3)
	assert.NotNil(t, geoms[0])
	assert.Nil(t, geoms[1])
	assert.Nil(t, geoms[2])

	clean, dropped := tbl.DropNullGeometry()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, clean.Len())
}

func TestFromXYMissingColumn(t *testing.T) {
	tbl := geotable.New("crimes", []string{"Longitude"})
	tbl.AppendRow([]string{"-2.24"})

	err := FromXY(tbl, "Longitude", "Latitude", EPSGWGS84)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Latitude")
}

func TestFromXYReprojectsWhenTableTagDiffers(t *testing.T) {
	// A table already tagged with the projected CRS whose coordinates are
	// eastings/northings: requesting WGS84 must reproject, not just retag.
	tbl := geotable.New("stops", []string{"Easting", "Northing"})
	tbl.AppendRow([]string{"400000", "300000"})
	tbl.EPSG = EPSGBritishNationalGrid

	require.NoError(t, FromXY(tbl, "Easting", "Northing", EPSGWGS84))

	assert.Equal(t, EPSGWGS84, tbl.EPSG)
	p := tbl.Geometry()[0].(*geom.Point)
	assert.InDelta(t, -2.0, p.X(), 0.1, "easting 400000 sits on the central meridian")
	assert.InDelta(t, 52.6, p.Y(), 0.2)
}
