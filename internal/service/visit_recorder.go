package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crawlerlog/internal/classifier"
	"github.com/crawlerlog/internal/config"
	"github.com/crawlerlog/internal/db"
	"github.com/crawlerlog/internal/logging"
	"github.com/crawlerlog/internal/metrics"
	"github.com/crawlerlog/internal/store"
	"github.com/rs/zerolog"
)

const unknownSession = "unknown"

// RequestMeta carries what the recorder needs to know about the incoming request.
type RequestMeta struct {
	SessionID string
	UserAgent string
	IPAddress string
	Referrer  string
	JSEnabled bool
}

// Engagement is the client-side report that may follow a page view.
type Engagement struct {
	TimeOnPage  *int
	ScrollDepth *int
}

// Empty reports whether no engagement field was supplied.
func (e Engagement) Empty() bool {
	return e.TimeOnPage == nil && e.ScrollDepth == nil
}

// VisitRecorder 负责写入访问记录。写入失败只记录日志，绝不影响页面请求。
type VisitRecorder struct {
	visits store.VisitStore
	policy string
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewVisitRecorder creates a recorder.
// policy is config.EngagementPolicyUpdate or config.EngagementPolicyInsert.
func NewVisitRecorder(visits store.VisitStore, policy string, window time.Duration) *VisitRecorder {
	if policy == "" {
		policy = config.EngagementPolicyUpdate
	}
	return &VisitRecorder{
		visits: visits,
		policy: policy,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logging.WithComponent("visits"),
	}
}

// WithClock overrides the time source, mainly for tests.
func (r *VisitRecorder) WithClock(now func() time.Time) *VisitRecorder {
	if now != nil {
		r.now = func() time.Time { return now().UTC() }
	}
	return r
}

// RecordVisit stores one page view or engagement report and returns the
// affected visit id. It returns 0 when the write failed; the error is logged
// and never reaches the caller.
func (r *VisitRecorder) RecordVisit(ctx context.Context, meta RequestMeta, path string, eng Engagement) uint {
	if strings.TrimSpace(meta.SessionID) == "" {
		meta.SessionID = unknownSession
	}

	if !eng.Empty() && r.policy == config.EngagementPolicyUpdate {
		if id, ok := r.updateLatest(ctx, meta.SessionID, path, eng); ok {
			return id
		}
	}

	visit := r.buildVisit(meta, path, eng)
	if err := r.visits.CreateVisit(ctx, visit); err != nil {
		metrics.VisitRecordFailures.Inc()
		r.log.Error().Err(err).
			Str("path", path).
			Str("session_id", meta.SessionID).
			Msg("failed to record visit")
		return 0
	}

	class := "human"
	if visit.IsCrawler {
		class = "crawler"
	}
	metrics.VisitsRecorded.WithLabelValues(class).Inc()
	if !eng.Empty() {
		metrics.EngagementUpdates.WithLabelValues("inserted").Inc()
	}

	r.log.Debug().
		Uint("visit_id", visit.ID).
		Str("path", path).
		Bool("is_crawler", visit.IsCrawler).
		Int("confidence", visit.BotConfidence).
		Msg("visit recorded")
	return visit.ID
}

// updateLatest applies the engagement to the newest matching visit inside the window.
func (r *VisitRecorder) updateLatest(ctx context.Context, sessionID, path string, eng Engagement) (uint, bool) {
	since := r.now().Add(-r.window)
	latest, err := r.visits.LatestVisit(ctx, sessionID, path, since)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Warn().Err(err).Str("path", path).Msg("lookup of latest visit failed")
		}
		return 0, false
	}

	if err := r.visits.UpdateVisitEngagement(ctx, latest.ID, eng.TimeOnPage, eng.ScrollDepth); err != nil {
		r.log.Warn().Err(err).Uint("visit_id", latest.ID).Msg("engagement update failed")
		return 0, false
	}

	metrics.EngagementUpdates.WithLabelValues("updated").Inc()
	return latest.ID, true
}

func (r *VisitRecorder) buildVisit(meta RequestMeta, path string, eng Engagement) *db.Visit {
	verdict := classifier.Classify(meta.UserAgent, meta.JSEnabled)
	agent := classifier.ParseAgent(meta.UserAgent)

	return &db.Visit{
		SessionID:     truncate(meta.SessionID, 100),
		UserAgent:     truncate(meta.UserAgent, 500),
		IPAddress:     truncate(meta.IPAddress, 50),
		Path:          truncate(path, 200),
		Referrer:      truncate(meta.Referrer, 500),
		Timestamp:     r.now(),
		IsCrawler:     verdict.IsCrawler,
		CrawlerName:   verdict.Name(),
		BotConfidence: verdict.Confidence,
		TimeOnPage:    eng.TimeOnPage,
		ScrollDepth:   eng.ScrollDepth,
		DeviceType:    agent.DeviceType,
		BrowserFamily: truncate(agent.Browser, 50),
		OSFamily:      truncate(agent.OS, 50),
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
