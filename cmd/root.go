package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "stopcrime",
	Short: "Crime counts within a buffer of public-transport stops",
	Long:  "Loads recorded-crime and NaPTAN stop data, buffers each stop, spatially joins crimes into the buffers, and aggregates a crime count per stop per crime type.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
