package service

import (
	"context"
	"testing"
	"time"

	"github.com/crawlerlog/internal/cache"
	"github.com/crawlerlog/internal/config"
	"github.com/crawlerlog/internal/db"
)

func TestAnalyticsSummaryGooglebotScenario(t *testing.T) {
	s := setupServiceTestStore(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	clock := now.Add(-3 * 24 * time.Hour)
	rec := NewVisitRecorder(s, config.EngagementPolicyUpdate, 30*time.Minute).
		WithClock(func() time.Time { return clock })

	rec.RecordVisit(ctx, RequestMeta{SessionID: "g", UserAgent: testGooglebotUA}, "/", Engagement{})
	rec.RecordVisit(ctx, RequestMeta{SessionID: "g", UserAgent: testGooglebotUA}, "/post/a", Engagement{})
	for i, session := range []string{"h1", "h2", "h3"} {
		clock = now.Add(-time.Duration(i+1) * time.Hour)
		rec.RecordVisit(ctx, RequestMeta{SessionID: session, UserAgent: testChromeUA, JSEnabled: true}, "/", Engagement{})
	}

	// outside the 7 day window
	clock = now.Add(-10 * 24 * time.Hour)
	rec.RecordVisit(ctx, RequestMeta{SessionID: "old", UserAgent: testChromeUA, JSEnabled: true}, "/", Engagement{})

	svc := NewAnalyticsService(s, nil, 0).WithClock(fixedClock(now))
	summary, err := svc.Summary(ctx, 7)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalVisits != 5 || summary.CrawlerVisits != 2 || summary.HumanVisits != 3 {
		t.Fatalf("unexpected totals: %d/%d/%d", summary.TotalVisits, summary.CrawlerVisits, summary.HumanVisits)
	}
	if len(summary.TopCrawlers) != 1 || summary.TopCrawlers[0].Name != "Googlebot" || summary.TopCrawlers[0].Count != 2 {
		t.Fatalf("unexpected top crawlers: %+v", summary.TopCrawlers)
	}
	if len(summary.VisitorTrend) != 8 {
		t.Fatalf("expected 8 trend days, got %d", len(summary.VisitorTrend))
	}

	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.TotalVisits != 6 || overview.TotalVisits != overview.CrawlerVisits+overview.HumanVisits {
		t.Fatalf("unexpected overview totals: %+v", overview)
	}
}

func TestAnalyticsSummaryDefaultsWindow(t *testing.T) {
	s := setupServiceTestStore(t)
	svc := NewAnalyticsService(s, nil, 0)

	for _, days := range []int{0, -3} {
		summary, err := svc.Summary(context.Background(), days)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if summary.Days != DefaultAnalyticsDays {
			t.Fatalf("expected default window, got %d", summary.Days)
		}
	}
}

func TestAnalyticsSummaryUsesCache(t *testing.T) {
	s := setupServiceTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	svc := NewAnalyticsService(s, cache.NewMemory(), time.Minute).WithClock(fixedClock(now))
	first, err := svc.Summary(ctx, 7)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if first.TotalVisits != 0 {
		t.Fatalf("expected empty summary, got %d", first.TotalVisits)
	}

	if err := s.CreateVisit(ctx, &db.Visit{SessionID: "s", Path: "/", Timestamp: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("create visit: %v", err)
	}

	cached, err := svc.Summary(ctx, 7)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if cached.TotalVisits != 0 {
		t.Fatalf("expected cached summary within ttl, got %d", cached.TotalVisits)
	}

	uncached := NewAnalyticsService(s, nil, 0).WithClock(fixedClock(now))
	fresh, err := uncached.Summary(ctx, 7)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if fresh.TotalVisits != 1 {
		t.Fatalf("expected fresh summary to see the new visit, got %d", fresh.TotalVisits)
	}
}

func TestAnalyticsSummaryCapsWindow(t *testing.T) {
	s := setupServiceTestStore(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := NewAnalyticsService(s, nil, 0).WithClock(fixedClock(now))

	summary, err := svc.Summary(context.Background(), 100000000)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Days != MaxAnalyticsDays {
		t.Fatalf("expected window capped at %d, got %d", MaxAnalyticsDays, summary.Days)
	}
	if len(summary.VisitorTrend) > MaxAnalyticsDays+1 {
		t.Fatalf("expected at most %d trend days, got %d", MaxAnalyticsDays+1, len(summary.VisitorTrend))
	}
	if !summary.Since.Equal(now.AddDate(0, 0, -MaxAnalyticsDays)) {
		t.Fatalf("unexpected window start %s", summary.Since)
	}
}

func TestNormalizeDays(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: -1, want: DefaultAnalyticsDays},
		{in: 0, want: DefaultAnalyticsDays},
		{in: 1, want: 1},
		{in: 30, want: 30},
		{in: MaxAnalyticsDays, want: MaxAnalyticsDays},
		{in: MaxAnalyticsDays + 1, want: MaxAnalyticsDays},
	}
	for _, tt := range tests {
		if got := NormalizeDays(tt.in); got != tt.want {
			t.Fatalf("NormalizeDays(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAnalyticsInvalidateDropsCachedResults(t *testing.T) {
	s := setupServiceTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	svc := NewAnalyticsService(s, cache.NewMemory(), time.Hour).WithClock(fixedClock(now))
	if _, err := svc.Summary(ctx, 30); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if _, err := svc.Overview(ctx); err != nil {
		t.Fatalf("overview: %v", err)
	}

	if err := s.CreateVisit(ctx, &db.Visit{SessionID: "s", Path: "/", Timestamp: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	summary, err := svc.Summary(ctx, 30)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if summary.TotalVisits != 1 || overview.TotalVisits != 1 {
		t.Fatalf("expected invalidated results to see the new visit, got %d/%d", summary.TotalVisits, overview.TotalVisits)
	}
}
