package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/didzislauva/osmplot/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the fetch cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd.Context(), func(ctx context.Context, cache store.Cache) error {
			stats, err := cache.Stats(ctx)
			if err != nil {
				return eris.Wrap(err, "cache stats")
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		})
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd.Context(), func(ctx context.Context, cache store.Cache) error {
			removed, err := cache.Purge(ctx)
			if err != nil {
				return eris.Wrap(err, "cache purge")
			}
			zap.L().Info("cache purged", zap.Int("removed", removed))
			enc := json.NewEncoder(os.Stdout)
			return enc.Encode(map[string]int{"removed": removed})
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd.Context(), func(ctx context.Context, cache store.Cache) error {
			if err := cache.Clear(ctx); err != nil {
				return eris.Wrap(err, "cache clear")
			}
			zap.L().Info("cache cleared")
			return nil
		})
	},
}

// withCache opens the configured cache, migrates it and hands it to fn.
func withCache(ctx context.Context, fn func(context.Context, store.Cache) error) error {
	cache, err := initCache(ctx)
	if err != nil {
		return err
	}
	if cache == nil {
		return eris.New("cache is disabled (cache.driver=off)")
	}
	defer cache.Close()

	if err := cache.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate cache")
	}
	return fn(ctx, cache)
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
