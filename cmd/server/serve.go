package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crawlerlog/internal/cache"
	"github.com/crawlerlog/internal/jobs"
	"github.com/crawlerlog/internal/logging"
	"github.com/crawlerlog/internal/presence"
	"github.com/crawlerlog/internal/router"
	"github.com/crawlerlog/internal/seed"
	"github.com/crawlerlog/internal/service"
	"github.com/crawlerlog/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.WithComponent("server")
	gin.SetMode(cfg.GinMode)

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	rng := newRNG(cfg.RNGSeed)

	if cfg.SeedSamplePosts {
		created, err := seed.New(st, rng).EnsureSamplePosts(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed sample posts: %w", err)
		}
		if created > 0 {
			log.Info().Int("created", created).Msg("sample posts seeded")
		}
	}

	analyticsCache := cache.NewWithFallback(ctx, cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	analyticsSvc := service.NewAnalyticsService(st, analyticsCache, cfg.AnalyticsCacheTTL)
	hub := presence.NewHub()

	r, err := router.SetupRouter(router.Deps{
		Config:    cfg,
		Posts:     service.NewPostService(st, rng),
		Visits:    service.NewVisitRecorder(st, cfg.EngagementPolicy, cfg.EngagementWindow),
		Analytics: analyticsSvc,
		Presence:  hub,
	})
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}

	scheduler := jobs.NewScheduler()
	if cfg.VisitRetentionDays > 0 {
		if err := scheduler.Register(cfg.RetentionSchedule, jobs.NewPruneVisitsJob(st, cfg.VisitRetentionDays).WithInvalidator(analyticsSvc)); err != nil {
			return err
		}
	}
	if scheduler.Entries() > 0 {
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("store", cfg.StoreDriver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
