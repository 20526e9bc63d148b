package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prosperdash/internal/cache"
	"prosperdash/internal/config"
)

var cachePurgeAll bool

// cacheCmd inspects and prunes the response cache.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the survey API response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and location",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

func init() {
	cachePurgeCmd.Flags().BoolVar(&cachePurgeAll, "all", false, "Delete every entry, not just expired ones")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

func openCache(cfg *config.Config, wd string) (*cache.Cache, string, error) {
	path := config.Resolve(wd, cfg.Cache.Path)
	db, err := cache.Open(path, logger)
	if err != nil {
		return nil, "", err
	}
	return db, path, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	db, path, err := openCache(cfg, wd)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Len()
	if err != nil {
		return err
	}

	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}

	fmt.Printf("Cache file: %s\n", path)
	fmt.Printf("Entries:    %d\n", n)
	fmt.Printf("Size:       %.1f KiB\n", float64(size)/1024)
	fmt.Printf("TTL:        %s\n", cfg.GetCacheTTL())
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	db, _, err := openCache(cfg, wd)
	if err != nil {
		return err
	}
	defer db.Close()

	age := cfg.GetCacheTTL()
	if cachePurgeAll {
		// A negative age puts the cutoff in the future so every row matches.
		age = -time.Second
	}
	n, err := db.Purge(age)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d cache entries\n", n)
	return nil
}
