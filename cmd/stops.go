package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urban-analytics/stopcrime/internal/loader"
)

var stopsCmd = &cobra.Command{
	Use:   "stops",
	Short: "Load and optionally export the stops data on its own",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if dir, _ := cmd.Flags().GetString("stops-dir"); dir != "" {
			cfg.Stops.Dir = dir
		}
		export, _ := cmd.Flags().GetBool("export-geo")

		t, err := loader.LoadStops(ctx, loader.Options{
			Dir:          cfg.Stops.Dir,
			XCol:         cfg.Stops.XCol,
			YCol:         cfg.Stops.YCol,
			EPSG:         cfg.Geo.GeographicEPSG,
			ExportGeo:    export || cfg.Export.Geo,
			ExportPrefix: cfg.Export.Prefix,
		})
		if err != nil {
			return eris.Wrap(err, "stops")
		}

		clean, dropped := t.DropNullGeometry()
		fmt.Printf("Stop data loaded for %d PT stops (%d without coordinates)\n", clean.Len(), dropped)
		return nil
	},
}

func init() {
	stopsCmd.Flags().String("stops-dir", "", "directory containing the stops CSV (overrides config)")
	stopsCmd.Flags().Bool("export-geo", false, "export the converted stops table as a shapefile")
	rootCmd.AddCommand(stopsCmd)
}
