package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "osmplot",
	Short: "Static map renderer for OpenStreetMap data",
	Long:  "Fetches ways for a small bounding box from the Overpass API, classifies them into roads, buildings and forests, and renders a styled map with scale bar and north arrow to raster and PDF outputs.",
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
