package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/source"
)

var (
	fetchBBox   string
	fetchLat    float64
	fetchLon    float64
	fetchKM     float64
	fetchOutDir string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the raw Overpass payloads to per-class JSON files",
	Long:  "Writes roads.json, buildings.json and forests.json with the untouched Overpass responses for the requested box. Useful for inspecting what the renderer would work from.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		b, err := resolveExtent(fetchBBox, fetchLat, fetchLon, fetchKM)
		if err != nil {
			return err
		}

		if fetchOutDir != "" && fetchOutDir != "." {
			if err := os.MkdirAll(fetchOutDir, 0o755); err != nil {
				return eris.Wrapf(err, "create %s", fetchOutDir)
			}
		}

		client := overpassClient()
		for _, class := range feature.Classes {
			q, err := source.ClassQuery(b, class)
			if err != nil {
				return err
			}
			body, err := client.Raw(ctx, q)
			if err != nil {
				return eris.Wrapf(err, "fetch %s", class)
			}
			path := filepath.Join(fetchOutDir, string(class)+".json")
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", path)
			}
			zap.L().Info("payload written",
				zap.String("class", string(class)),
				zap.String("path", path),
				zap.Int("bytes", len(body)))
		}

		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchBBox, "bbox", "", "box as south,west,north,east degrees (overrides center)")
	fetchCmd.Flags().Float64Var(&fetchLat, "lat", 0, "center latitude (default from config)")
	fetchCmd.Flags().Float64Var(&fetchLon, "lon", 0, "center longitude (default from config)")
	fetchCmd.Flags().Float64Var(&fetchKM, "km", 0, "box size in km (default from config)")
	fetchCmd.Flags().StringVar(&fetchOutDir, "out-dir", ".", "directory for the JSON files")
	rootCmd.AddCommand(fetchCmd)
}
