package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the response cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached provider response",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}

		if err = cache.Purge(cfg.CacheDir()); err != nil {
			return err
		}
		if err = a.prefs.Set(cache.LastCleanKey, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
			return err
		}

		logger.InfoContext(cmd.Context(), "Response cache purged", "dir", cfg.CacheDir())
		fmt.Fprintf(os.Stdout, "Cache %s purged.\n", cfg.CacheDir())

		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
}
