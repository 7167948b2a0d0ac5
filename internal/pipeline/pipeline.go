// Package pipeline orchestrates the batch run: load both sources, buffer
// the stops, join incidents into the buffers, and aggregate crime counts
// per stop. Single-threaded and one-shot; any stage error aborts the run.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/config"
	"github.com/urban-analytics/stopcrime/internal/geo"
	"github.com/urban-analytics/stopcrime/internal/geotable"
	"github.com/urban-analytics/stopcrime/internal/loader"
	"github.com/urban-analytics/stopcrime/internal/spatial"
)

// Summary reports what a run processed.
type Summary struct {
	Incidents        int
	IncidentsDropped int
	Stops            int
	StopsDropped     int
	JoinedRows       int
	AggregateRows    int

	LoadDuration  time.Duration
	JoinDuration  time.Duration
	TotalDuration time.Duration

	// Aggregate is the final per-(stop, crime-type) table.
	Aggregate *geotable.Table
}

// Run executes the full pipeline with the given configuration.
func Run(ctx context.Context, cfg *config.Config) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "pipeline"))
	start := time.Now()
	sum := &Summary{}

	// Load crime data and convert to geospatial form.
	crimes, err := loader.LoadCrimeData(ctx, loader.Options{
		Dir:          cfg.Crime.Dir,
		XCol:         cfg.Crime.XCol,
		YCol:         cfg.Crime.YCol,
		EPSG:         cfg.Geo.GeographicEPSG,
		ExportGeo:    cfg.Export.Geo,
		ExportPrefix: cfg.Export.Prefix,
	})
	if err != nil {
		return nil, err
	}

	// Load stop data.
	stops, err := loader.LoadStops(ctx, loader.Options{
		Dir:          cfg.Stops.Dir,
		XCol:         cfg.Stops.XCol,
		YCol:         cfg.Stops.YCol,
		EPSG:         cfg.Geo.GeographicEPSG,
		ExportGeo:    cfg.Export.Geo,
		ExportPrefix: cfg.Export.Prefix,
	})
	if err != nil {
		return nil, err
	}
	sum.LoadDuration = time.Since(start)

	// Rows without a geometry must never reach the join as false matches.
	incidents, droppedIncidents := crimes.Combined.DropNullGeometry()
	cleanStops, droppedStops := stops.DropNullGeometry()
	sum.Incidents = incidents.Len()
	sum.IncidentsDropped = droppedIncidents
	sum.Stops = cleanStops.Len()
	sum.StopsDropped = droppedStops

	log.Info("sources loaded",
		zap.Int("offences", incidents.Len()),
		zap.Int("offences_without_geometry", droppedIncidents),
		zap.Int("stops", cleanStops.Len()),
		zap.Int("stops_without_geometry", droppedStops),
		zap.Duration("elapsed", sum.LoadDuration),
	)

	// Buffer the stops in the metric CRS.
	if err := spatial.Buffer(cleanStops, cfg.Geo.BufferMeters, geo.GeometryColumn,
		cfg.Geo.ProjectedEPSG, cfg.Geo.BufferSegments); err != nil {
		return nil, err
	}

	// The buffered table now carries two geometries; drop the point column
	// and make the buffer polygons the active geometry before joining.
	if err := cleanStops.DropGeometry(geo.GeometryColumn); err != nil {
		return nil, eris.Wrap(err, "pipeline: drop residual point geometry")
	}
	if err := cleanStops.UseGeometry(spatial.BufferPrefix + geo.GeometryColumn); err != nil {
		return nil, eris.Wrap(err, "pipeline: activate buffered geometry")
	}

	// Both sides in the projected CRS for the containment join.
	if err := geo.Normalize(cleanStops, cfg.Geo.ProjectedEPSG); err != nil {
		return nil, err
	}
	if err := geo.Normalize(incidents, cfg.Geo.ProjectedEPSG); err != nil {
		return nil, err
	}

	joinStart := time.Now()
	log.Info("commencing spatial join")

	joined, err := spatial.WithinJoin(incidents, cleanStops)
	if err != nil {
		return nil, err
	}
	sum.JoinedRows = joined.Len()
	sum.JoinDuration = time.Since(joinStart)
	log.Info("spatial join complete", zap.Duration("elapsed", sum.JoinDuration))

	aggregate, err := spatial.Aggregate(joined, cfg.Join.GroupBy, cfg.Join.RetainColumns)
	if err != nil {
		return nil, err
	}
	sum.Aggregate = aggregate
	sum.AggregateRows = aggregate.Len()
	sum.TotalDuration = time.Since(start)

	log.Info("pipeline complete",
		zap.Int("stops_with_crime", aggregate.Len()),
		zap.Float64("buffer_m", cfg.Geo.BufferMeters),
		zap.Duration("elapsed", sum.TotalDuration),
	)
	return sum, nil
}
