package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipbook/internal/cache"
	"clipbook/internal/logging"
	"clipbook/internal/notifications"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the conversion cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

// withCache opens the cache store without wiring the full pipeline.
func withCache(ctx *commandContext, fn func(*cache.Cache) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return fmt.Errorf("the cache is disabled in the configuration")
	}
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.MaxMiB, logging.NewNop())
	if err != nil {
		return err
	}
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *cache.Cache) error {
				entries, bytes := store.Stats()
				cfg, _ := ctx.ensureConfig()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Directory: %s\n", cfg.Cache.Dir)
				fmt.Fprintf(out, "Entries:   %d\n", entries)
				fmt.Fprintf(out, "Size:      %.1f MiB of %d MiB\n", float64(bytes)/(1<<20), cfg.Cache.MaxMiB)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached conversion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, func(store *cache.Cache) error {
				entries, _ := store.Stats()
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached conversions\n", entries)
				cfg, _ := ctx.ensureConfig()
				if err := notifications.NewService(cfg).NotifyCacheCleared(cmd.Context(), entries); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", err)
				}
				return nil
			})
		},
	}
}
