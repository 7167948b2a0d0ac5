package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full crimes-near-stops pipeline",
	Long: `Loads every crime CSV under the crime data tree, loads the stops file,
buffers each stop in the projected CRS, joins crimes into the buffers by
containment, and aggregates a crime count per (stop, crime type).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if dir, _ := cmd.Flags().GetString("crime-dir"); dir != "" {
			cfg.Crime.Dir = dir
		}
		if dir, _ := cmd.Flags().GetString("stops-dir"); dir != "" {
			cfg.Stops.Dir = dir
		}
		if radius, _ := cmd.Flags().GetFloat64("buffer"); radius > 0 {
			cfg.Geo.BufferMeters = radius
		}
		if export, _ := cmd.Flags().GetBool("export-geo"); export {
			cfg.Export.Geo = true
		}

		log := zap.L().With(zap.String("command", "run"))
		log.Info("starting pipeline",
			zap.String("crime_dir", cfg.Crime.Dir),
			zap.String("stops_dir", cfg.Stops.Dir),
			zap.Float64("buffer_m", cfg.Geo.BufferMeters),
		)

		sum, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := pipeline.ExportCSV(sum.Aggregate, out); err != nil {
				return eris.Wrap(err, "run: export aggregate")
			}
			fmt.Printf("Aggregate written to %s\n", out)
		}

		fmt.Printf("Crime data created for %d offences (%d without coordinates dropped)\n",
			sum.Incidents, sum.IncidentsDropped)
		fmt.Printf("Stop data loaded for %d PT stops (%d without coordinates dropped)\n",
			sum.Stops, sum.StopsDropped)
		fmt.Printf("Spatial join produced %d rows in %s\n", sum.JoinedRows, sum.JoinDuration.Round(time.Millisecond))
		fmt.Printf("%d (stop, crime type) pairs have crime within %.0f metres of a stop\n",
			sum.AggregateRows, cfg.Geo.BufferMeters)
		fmt.Printf("Total: %s\n", sum.TotalDuration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	runCmd.Flags().String("crime-dir", "", "root directory of year-month crime data folders (overrides config)")
	runCmd.Flags().String("stops-dir", "", "directory containing the stops CSV (overrides config)")
	runCmd.Flags().Float64("buffer", 0, "buffer radius in metres (overrides config)")
	runCmd.Flags().Bool("export-geo", false, "export each converted table as a shapefile alongside its source")
	runCmd.Flags().String("out", "", "write the final aggregate table to this CSV file")
	rootCmd.AddCommand(runCmd)
}
