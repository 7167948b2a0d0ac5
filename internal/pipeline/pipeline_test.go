package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-analytics/stopcrime/internal/config"
)

// Stop location for the end-to-end scenario, well inside the coverage of
// the projected CRS.
const (
	stopLon = -2.0
	stopLat = 53.0
)

// offsetDegrees converts a metric east/north offset from the stop into a
// longitude/latitude pair. Good to well under a metre at this scale.
func offsetDegrees(eastM, northM float64) (lon, lat float64) {
	latMetres := 111320.0
	lonMetres := latMetres * math.Cos(stopLat*math.Pi/180)
	return stopLon + eastM/lonMetres, stopLat + northM/latMetres
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(crimeDir, stopsDir string) *config.Config {
	return &config.Config{
		Crime: config.CrimeConfig{Dir: crimeDir, XCol: "Longitude", YCol: "Latitude"},
		Stops: config.StopsConfig{Dir: stopsDir, XCol: "Longitude", YCol: "Latitude", CodeCol: "NaptanCode"},
		Geo: config.GeoConfig{
			GeographicEPSG: 4326,
			ProjectedEPSG:  27700,
			BufferMeters:   100,
			BufferSegments: 64,
		},
		Join: config.JoinConfig{
			GroupBy:       []string{"NaptanCode", "Crime type"},
			RetainColumns: []string{"Crime ID", "CommonName"},
		},
		Export: config.ExportConfig{Prefix: "geo_"},
	}
}

// One stop with a 100m buffer and three located incidents at ~10m, ~200m
// and ~70m: exactly the first and third join, and the per-stop count is 2.
func TestRunEndToEnd(t *testing.T) {
	crimeDir := t.TempDir()
	stopsDir := t.TempDir()

	lonA, latA := offsetDegrees(10, 0)
	lonB, latB := offsetDegrees(200, 0)
	lonC, latC := offsetDegrees(50, 50)

	writeFile(t, filepath.Join(crimeDir, "2024-01", "2024-01-street.csv"), fmt.Sprintf(
		"Crime ID,Longitude,Latitude,Crime type\n"+
			"a,%.8f,%.8f,Burglary\n"+
			"b,%.8f,%.8f,Burglary\n"+
			"c,%.8f,%.8f,Burglary\n"+
			"d,,,Burglary\n",
		lonA, latA, lonB, latB, lonC, latC))

	writeFile(t, filepath.Join(stopsDir, "Stops.csv"), fmt.Sprintf(
		"ATCOCode,NaptanCode,CommonName,Longitude,Latitude\n"+
			"atco1,stop1,High Street,%.8f,%.8f\n",
		stopLon, stopLat))

	sum, err := Run(context.Background(), testConfig(crimeDir, stopsDir))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Incidents, "incident without coordinates excluded from the combined count")
	assert.Equal(t, 1, sum.IncidentsDropped)
	assert.Equal(t, 1, sum.Stops)
	assert.Equal(t, 2, sum.JoinedRows, "only the 10m and ~70m incidents are within the buffer")

	require.Equal(t, 1, sum.AggregateRows)
	agg := sum.Aggregate
	assert.Equal(t, "stop1", agg.Value(0, "NaptanCode"))
	assert.Equal(t, "Burglary", agg.Value(0, "Crime type"))
	assert.Equal(t, "2", agg.Value(0, "crime_count"))
	assert.Equal(t, "High Street", agg.Value(0, "CommonName"))
}

func TestRunAggregatesPerCrimeType(t *testing.T) {
	crimeDir := t.TempDir()
	stopsDir := t.TempDir()

	var rows string
	for i := 0; i < 3; i++ {
		lon, lat := offsetDegrees(float64(5+i), 0)
		rows += fmt.Sprintf("b%d,%.8f,%.8f,Burglary\n", i, lon, lat)
	}
	for i := 0; i < 2; i++ {
		lon, lat := offsetDegrees(0, float64(5+i))
		rows += fmt.Sprintf("t%d,%.8f,%.8f,Theft\n", i, lon, lat)
	}
	writeFile(t, filepath.Join(crimeDir, "2024-01", "street.csv"),
		"Crime ID,Longitude,Latitude,Crime type\n"+rows)

	writeFile(t, filepath.Join(stopsDir, "Stops.csv"), fmt.Sprintf(
		"ATCOCode,NaptanCode,CommonName,Longitude,Latitude\natco1,stop1,High Street,%.8f,%.8f\n",
		stopLon, stopLat))

	sum, err := Run(context.Background(), testConfig(crimeDir, stopsDir))
	require.NoError(t, err)

	// Sorted by group key: Burglary before Theft.
	require.Equal(t, 2, sum.AggregateRows)
	assert.Equal(t, "Burglary", sum.Aggregate.Value(0, "Crime type"))
	assert.Equal(t, "3", sum.Aggregate.Value(0, "crime_count"))
	assert.Equal(t, "Theft", sum.Aggregate.Value(1, "Crime type"))
	assert.Equal(t, "2", sum.Aggregate.Value(1, "crime_count"))
}

func TestRunMissingInputsFailFast(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := testConfig("", "")
	_, err := Run(context.Background(), cfg)
	require.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	crimeDir := t.TempDir()
	stopsDir := t.TempDir()

	lon, lat := offsetDegrees(10, 0)
	writeFile(t, filepath.Join(crimeDir, "2024-01", "street.csv"), fmt.Sprintf(
		"Crime ID,Longitude,Latitude,Crime type\na,%.8f,%.8f,Burglary\n", lon, lat))
	writeFile(t, filepath.Join(stopsDir, "Stops.csv"), fmt.Sprintf(
		"ATCOCode,NaptanCode,CommonName,Longitude,Latitude\natco1,stop1,High Street,%.8f,%.8f\n",
		stopLon, stopLat))

	sum, err := Run(context.Background(), testConfig(crimeDir, stopsDir))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "aggregate.csv")
	require.NoError(t, ExportCSV(sum.Aggregate, out))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "NaptanCode,Crime type,crime_count")
	assert.Contains(t, string(content), "stop1,Burglary,1")
}
