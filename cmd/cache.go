package cmd

import (
	"context"
	"fmt"

	"github.com/brogergvhs/noveld/internal/cache"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/ui"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the chapter cache",
}

func withCache(fn func(c *cache.ChapterCache) error) error {
	cfg, _, err := config.LoadMerged(config.Options{IgnoreConfig: flagIgnoreConfig, Debug: flagDebug})
	if err != nil {
		return err
	}
	if cfg.CacheBackend == config.CacheMemory {
		return fmt.Errorf("the memory cache lives only for one run, nothing to maintain")
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	c := cache.New(store, ui.NewLogger(cfg.Debug).With("component", "cache"))
	defer c.Close()

	return fn(c)
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached chapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *cache.ChapterCache) error {
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Println("Chapter cache cleared.")
			return nil
		})
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Drop cached chapters older than 24h",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *cache.ChapterCache) error {
			n, err := c.SweepExpired()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired chapter(s).\n", n)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
