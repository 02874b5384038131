package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/feature"
	"github.com/didzislauva/osmplot/internal/pipeline"
	"github.com/didzislauva/osmplot/internal/sink"
)

var (
	renderBBox   string
	renderLat    float64
	renderLon    float64
	renderKM     float64
	renderOut    []string
	renderTitle  string
	renderWidth  int
	renderStyles string
	renderFont   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch, classify and render one map",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("render"); err != nil {
			return err
		}

		b, err := resolveExtent(renderBBox, renderLat, renderLon, renderKM)
		if err != nil {
			return err
		}

		src, cache, err := initSource(ctx, nil)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close()
		}

		customExtent := renderBBox != "" || renderLat != 0 || renderLon != 0
		ropts, err := renderOptions(resolveTitle(renderTitle, customExtent), renderStyles)
		if err != nil {
			return err
		}

		result, err := pipeline.New(src).Run(ctx, b, ropts)
		if err != nil {
			return eris.Wrap(err, "render")
		}

		outputs := renderOut
		if len(outputs) == 0 {
			outputs = cfg.Output.Paths
		}
		if err := sink.WriteFiles(ctx, result.Map, outputs, encodeOptions(renderWidth, renderFont)); err != nil {
			return err
		}

		zap.L().Info("render complete",
			zap.String("run_id", result.RunID),
			zap.Int("roads", result.Counts[feature.ClassRoads]),
			zap.Int("buildings", result.Counts[feature.ClassBuildings]),
			zap.Int("forests", result.Counts[feature.ClassForests]),
			zap.Duration("duration", result.Duration),
		)

		summary := struct {
			RunID    string                `json:"run_id"`
			BBox     string                `json:"bbox"`
			Counts   map[feature.Class]int `json:"counts"`
			Dropped  int                   `json:"dropped"`
			Duration string                `json:"duration"`
			Outputs  []string              `json:"outputs"`
		}{
			RunID:    result.RunID,
			BBox:     result.BBox.String(),
			Counts:   result.Counts,
			Dropped:  result.Dropped,
			Duration: result.Duration.String(),
			Outputs:  outputs,
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderBBox, "bbox", "", "box as south,west,north,east degrees (overrides center)")
	renderCmd.Flags().Float64Var(&renderLat, "lat", 0, "center latitude (default from config)")
	renderCmd.Flags().Float64Var(&renderLon, "lon", 0, "center longitude (default from config)")
	renderCmd.Flags().Float64Var(&renderKM, "km", 0, "box size in km (default from config)")
	renderCmd.Flags().StringSliceVar(&renderOut, "out", nil, "output paths (default from config)")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "map title (default from config)")
	renderCmd.Flags().IntVar(&renderWidth, "width", 0, "raster width in pixels (default from config)")
	renderCmd.Flags().StringVar(&renderStyles, "styles", "", "style sheet YAML path")
	renderCmd.Flags().StringVar(&renderFont, "font", "", "TTF font for raster labels")
	rootCmd.AddCommand(renderCmd)
}
