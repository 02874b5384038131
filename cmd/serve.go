package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/geo"
	"github.com/didzislauva/osmplot/internal/mapserve"
	"github.com/didzislauva/osmplot/internal/observability"
	"github.com/didzislauva/osmplot/internal/pipeline"
	"github.com/didzislauva/osmplot/internal/render"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered maps over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		metrics := observability.NewMetrics()

		src, cache, err := initSource(ctx, metrics)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close()
		}

		styles, err := render.LoadStyles(cfg.Render.StylesPath)
		if err != nil {
			return err
		}

		p := pipeline.New(src, pipeline.WithMetrics(metrics))

		// An empty title means the renderer generates the coordinate
		// title; the configured title only fits the configured extent.
		renderFn := func(ctx context.Context, b geo.BBox, title string) (*render.Map, error) {
			result, err := p.Run(ctx, b, render.Options{
				Title:            title,
				Styles:           styles,
				ScaleBarFraction: cfg.Render.ScaleBarFraction,
			})
			if err != nil {
				return nil, err
			}
			return result.Map, nil
		}

		hopts := []mapserve.HandlerOption{
			mapserve.WithMetrics(metrics),
			mapserve.WithEncodeOptions(encodeOptions(0, "")),
			mapserve.WithMaxSizeKM(cfg.Server.MaxSizeKM),
		}
		if cfg.Server.CacheEntries > 0 {
			renderCache := mapserve.NewRenderCache(
				cfg.Server.CacheEntries,
				time.Duration(cfg.Server.CacheTTLMinutes)*time.Minute)
			hopts = append(hopts, mapserve.WithCache(renderCache))
		}
		handler := mapserve.NewHandler(renderFn, hopts...)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler.Routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
