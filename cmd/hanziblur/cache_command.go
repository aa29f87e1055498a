package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hanziblur/internal/services"
	"hanziblur/internal/trackcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the track cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func openCache(cmd *cobra.Command, ctx *commandContext) (*trackcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "cache.enabled is false", nil)
	}
	return trackcache.Open(cmd.Context(), cfg.Cache.Path, logger)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of cached analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache path: %s\n", store.Path())
			fmt.Fprintf(out, "Entries:    %d\n", n)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			var cutoff time.Time
			if olderThan > 0 {
				cutoff = time.Now().Add(-olderThan)
			}
			removed, err := store.Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached analyses\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only remove entries older than this (0 = all)")
	return cmd
}
