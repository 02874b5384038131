package main

import (
	"path"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/pipeline"
	"github.com/didzislauva/osmplot/internal/sink"
)

var (
	uploadBBox   string
	uploadLat    float64
	uploadLon    float64
	uploadKM     float64
	uploadKeys   []string
	uploadPrefix string
	uploadTitle  string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Render a map and upload the outputs to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("upload"); err != nil {
			return err
		}

		b, err := resolveExtent(uploadBBox, uploadLat, uploadLon, uploadKM)
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

		customExtent := uploadBBox != "" || uploadLat != 0 || uploadLon != 0
		ropts, err := renderOptions(resolveTitle(uploadTitle, customExtent), "")
		if err != nil {
			return err
		}

		result, err := pipeline.New(src).Run(ctx, b, ropts)
		if err != nil {
			return eris.Wrap(err, "render")
		}

		uploader, err := sink.NewUploader(ctx, sink.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return err
		}

		keys := uploadKeys
		if len(keys) == 0 {
			// Object keys always use forward slashes.
			for _, p := range cfg.Output.Paths {
				keys = append(keys, path.Join(uploadPrefix, filepath.Base(p)))
			}
		}

		if err := uploader.UploadMap(ctx, result.Map, keys, encodeOptions(0, "")); err != nil {
			return err
		}

		zap.L().Info("upload complete",
			zap.String("run_id", result.RunID),
			zap.String("bucket", cfg.S3.Bucket),
			zap.Strings("keys", keys))
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadBBox, "bbox", "", "box as south,west,north,east degrees (overrides center)")
	uploadCmd.Flags().Float64Var(&uploadLat, "lat", 0, "center latitude (default from config)")
	uploadCmd.Flags().Float64Var(&uploadLon, "lon", 0, "center longitude (default from config)")
	uploadCmd.Flags().Float64Var(&uploadKM, "km", 0, "box size in km (default from config)")
	uploadCmd.Flags().StringSliceVar(&uploadKeys, "key", nil, "object keys (default: prefix + configured output names)")
	uploadCmd.Flags().StringVar(&uploadPrefix, "prefix", "maps", "key prefix when deriving keys from output names")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "map title (default from config)")
	rootCmd.AddCommand(uploadCmd)
}
