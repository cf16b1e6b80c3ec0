package main

import (
	"context"
	"fmt"

	"github.com/crawlerlog/internal/cache"
	"github.com/crawlerlog/internal/jobs"
	"github.com/crawlerlog/internal/seed"
	"github.com/crawlerlog/internal/service"
	"github.com/crawlerlog/internal/store"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample posts, optionally followed by random ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		random, _ := cmd.Flags().GetInt("random")
		if random < 0 {
			return fmt.Errorf("--random must not be negative")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		ctx := context.Background()
		seeder := seed.New(st, newRNG(cfg.RNGSeed))

		created, err := seeder.EnsureSamplePosts(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed sample posts: %w", err)
		}
		fmt.Printf("✓ %d sample posts created\n", created)

		if random > 0 {
			posts, err := seeder.GenerateRandomPosts(ctx, random)
			if err != nil {
				return fmt.Errorf("failed to generate posts: %w", err)
			}
			fmt.Printf("✓ %d random posts created\n", len(posts))
		}
		return nil
	},
}

var pruneVisitsCmd = &cobra.Command{
	Use:   "prune-visits",
	Short: "Delete visits older than the given number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("older-than")
		if days <= 0 {
			return fmt.Errorf("--older-than must be a positive number of days")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		ctx := context.Background()
		// 仅在配置了 Redis 时清理共享缓存；内存缓存随进程结束
		job := jobs.NewPruneVisitsJob(st, days)
		if client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
			defer client.Close()
			job.WithInvalidator(service.NewAnalyticsService(st, cache.NewRedis(client), cfg.AnalyticsCacheTTL))
		}

		removed, err := job.Prune(ctx)
		if err != nil {
			return fmt.Errorf("failed to prune visits: %w", err)
		}
		fmt.Printf("✓ %d visits removed\n", removed)
		return nil
	},
}

var clearPostsCmd = &cobra.Command{
	Use:   "clear-posts",
	Short: "Delete every post",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		removed, err := st.DeleteAllPosts(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear posts: %w", err)
		}
		fmt.Printf("✓ %d posts removed\n", removed)
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("random", 0, "Number of random posts to generate after the samples")
	pruneVisitsCmd.Flags().Int("older-than", 30, "Retention in days")
}
