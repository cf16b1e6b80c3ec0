package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/crawlerlog/internal/analytics"
	"github.com/crawlerlog/internal/cache"
	"github.com/crawlerlog/internal/logging"
	"github.com/crawlerlog/internal/metrics"
	"github.com/crawlerlog/internal/store"
	"github.com/rs/zerolog"
)

const (
	// DefaultAnalyticsDays is used when the requested window is missing or invalid.
	DefaultAnalyticsDays = 7
	// MaxAnalyticsDays caps the window so the trend and the cache key space stay bounded.
	MaxAnalyticsDays = 365

	overviewCacheKey      = "analytics:overview"
	summaryCacheKeyPrefix = "analytics:summary:"
)

// AnalyticsService builds dashboard statistics from recorded visits. It never writes visits.
type AnalyticsService struct {
	visits store.VisitStore
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewAnalyticsService creates the service; c may be nil to disable caching.
func NewAnalyticsService(visits store.VisitStore, c cache.Cache, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{
		visits: visits,
		cache:  c,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logging.WithComponent("analytics"),
	}
}

// WithClock overrides the time source.
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	if now != nil {
		s.now = now
	}
	return s
}

// NormalizeDays 将非法的窗口天数回退到默认 7 天，超过上限时截断为 MaxAnalyticsDays。
func NormalizeDays(days int) int {
	if days < 1 {
		return DefaultAnalyticsDays
	}
	if days > MaxAnalyticsDays {
		return MaxAnalyticsDays
	}
	return days
}

// Summary returns the statistics for the trailing window of days.
func (s *AnalyticsService) Summary(ctx context.Context, days int) (analytics.Summary, error) {
	days = NormalizeDays(days)
	key := summaryCacheKey(days)

	var summary analytics.Summary
	if s.cacheGet(ctx, key, &summary) {
		return summary, nil
	}

	timer := metrics.NewTimer()
	window := analytics.Window{Days: days, Now: s.now()}
	visits, err := s.visits.VisitsSince(ctx, window.Cutoff())
	if err != nil {
		return analytics.Summary{}, fmt.Errorf("load visits: %w", err)
	}
	summary = analytics.Summarize(visits, window)
	timer.ObserveDurationVec(metrics.AnalyticsQueryDuration, "summary")

	s.cacheSet(ctx, key, summary)
	return summary, nil
}

// Overview returns all-time totals for the admin page.
func (s *AnalyticsService) Overview(ctx context.Context) (analytics.Overview, error) {
	const key = overviewCacheKey

	var overview analytics.Overview
	if s.cacheGet(ctx, key, &overview) {
		return overview, nil
	}

	timer := metrics.NewTimer()
	visits, err := s.visits.VisitsSince(ctx, time.Time{})
	if err != nil {
		return analytics.Overview{}, fmt.Errorf("load visits: %w", err)
	}
	overview = analytics.BuildOverview(visits)
	timer.ObserveDurationVec(metrics.AnalyticsQueryDuration, "overview")

	s.cacheSet(ctx, key, overview)
	return overview, nil
}

// Invalidate drops every cached summary and the overview, e.g. after visits were deleted.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	keys := make([]string, 0, MaxAnalyticsDays+1)
	keys = append(keys, overviewCacheKey)
	for days := 1; days <= MaxAnalyticsDays; days++ {
		keys = append(keys, summaryCacheKey(days))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate analytics cache: %w", err)
	}
	return nil
}

func summaryCacheKey(days int) string {
	return summaryCacheKeyPrefix + strconv.Itoa(days)
}

func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil || s.ttl <= 0 {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, dest)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
		return false
	}
	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.AnalyticsCacheHits.WithLabelValues(result).Inc()
	return ok
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("analytics cache write failed")
	}
}
