package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

const crimeHeader = "Crime ID,Longitude,Latitude,Crime type\n"

func crimeOptions(dir string) Options {
	return Options{
		Dir:  dir,
		XCol: "Longitude",
		YCol: "Latitude",
		EPSG: 4326,
	}
}

func TestLoadCrimeData(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023-01", "2023-01-city-street.csv"),
		crimeHeader+"a,-2.24,53.48,Burglary\nb,-2.25,53.49,Theft\n")
	writeFile(t, filepath.Join(root, "2023-02", "2023-02-city-street.csv"),
		crimeHeader+"c,-2.24,53.48,Burglary\n")
	writeFile(t, filepath.Join(root, "2024-01", "2024-01-city-street.csv"),
		crimeHeader+"d,,,Theft\n")

	data, err := LoadCrimeData(context.Background(), crimeOptions(root))
	require.NoError(t, err)

	require.Len(t, data.ByYear, 2)
	require.Len(t, data.ByYear["2023"], 2)
	require.Len(t, data.ByYear["2024"], 1)
	assert.Equal(t, 2, data.ByYear["2023"]["2023-01-city-street"].Len())

	require.Equal(t, 4, data.Combined.Len())
	assert.Equal(t, 4326, data.Combined.EPSG)

	clean, dropped := data.Combined.DropNullGeometry()
	assert.Equal(t, 1, dropped, "the incident without coordinates is filterable")
	assert.Equal(t, 3, clean.Len())
}

func TestLoadCrimeDataSchemaUnion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023-01", "street.csv"),
		"Crime ID,Longitude,Latitude,Crime type\na,-2.24,53.48,Burglary\n")
	writeFile(t, filepath.Join(root, "2023-02", "street.csv"),
		"Crime ID,Longitude,Latitude,Last outcome category\nb,-2.24,53.48,Under investigation\n")

	data, err := LoadCrimeData(context.Background(), crimeOptions(root))
	require.NoError(t, err)

	require.Equal(t, 2, data.Combined.Len())
	assert.Equal(t, "Burglary", data.Combined.Value(0, "Crime type"))
	assert.Equal(t, "", data.Combined.Value(1, "Crime type"), "missing columns become null")
	assert.Equal(t, "Under investigation", data.Combined.Value(1, "Last outcome category"))
}

func TestLoadCrimeDataMissingRoot(t *testing.T) {
	_, err := LoadCrimeData(context.Background(), crimeOptions(filepath.Join(t.TempDir(), "nope")))
	require.Error(t, err)

	var missing *geotable.MissingInputError
	require.True(t, errors.As(err, &missing))
}

func TestLoadCrimeDataEmptyRoot(t *testing.T) {
	root := t.TempDir()
	_, err := LoadCrimeData(context.Background(), crimeOptions(root))
	require.Error(t, err)

	var missing *geotable.MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, root, missing.Path)
}

func TestLoadCrimeDataNoCSVFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2023-01"), 0o755))
	writeFile(t, filepath.Join(root, "2023-01", "readme.txt"), "not a csv")

	_, err := LoadCrimeData(context.Background(), crimeOptions(root))
	require.Error(t, err)

	var missing *geotable.MissingInputError
	require.True(t, errors.As(err, &missing))
}

func TestLoadCrimeDataExportsShapefiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023-01", "street.csv"),
		crimeHeader+"a,-2.24,53.48,Burglary\n")

	opts := crimeOptions(root)
	opts.ExportGeo = true
	opts.ExportPrefix = "geo_"

	_, err := LoadCrimeData(context.Background(), opts)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "2023-01", "geo_street.shp"))
	assert.NoError(t, statErr, "shapefile exported alongside the source")
}

func TestLoadCrimeDataCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2023-01", "street.csv"),
		crimeHeader+"a,-2.24,53.48,Burglary\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadCrimeData(ctx, crimeOptions(root))
	require.Error(t, err)
}
