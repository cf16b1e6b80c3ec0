package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/crawlerlog/internal/config"
	"github.com/crawlerlog/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crawlerlog",
	Short: "Crawler Log - a blog that watches who reads it",
	Long: `Crawler Log serves a small blog and records every page view,
classifying each visitor as a crawler or a human and summarising
the traffic on the /admin and /analytics dashboards.

Configuration is read from environment variables.`,
	Version: Version,
	RunE:    runServe,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"crawlerlog version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(pruneVisitsCmd)
	rootCmd.AddCommand(clearPostsCmd)
}

// loadConfig 读取配置并初始化日志，所有子命令共用。
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.AppConfig{}, err
	}
	logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		JSONOutput: cfg.LogJSON,
	})
	return cfg, nil
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
