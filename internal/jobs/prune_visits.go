package jobs

import (
	"context"
	"time"

	"github.com/crawlerlog/internal/logging"
	"github.com/crawlerlog/internal/metrics"
	"github.com/crawlerlog/internal/store"
)

const pruneTimeout = 5 * time.Minute

// Invalidator drops results derived from visits that no longer exist.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// PruneVisitsJob deletes visits older than the retention period.
type PruneVisitsJob struct {
	visits      store.VisitStore
	retention   time.Duration
	now         func() time.Time
	invalidator Invalidator
}

// NewPruneVisitsJob keeps the last retentionDays days of visits.
func NewPruneVisitsJob(visits store.VisitStore, retentionDays int) *PruneVisitsJob {
	return &PruneVisitsJob{
		visits:    visits,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (j *PruneVisitsJob) WithClock(now func() time.Time) *PruneVisitsJob {
	j.now = now
	return j
}

// WithInvalidator registers a cache to clear whenever visits were removed.
func (j *PruneVisitsJob) WithInvalidator(inv Invalidator) *PruneVisitsJob {
	j.invalidator = inv
	return j
}

func (j *PruneVisitsJob) Name() string { return "PruneVisitsJob" }

// Run implements cron.Job.
func (j *PruneVisitsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	if _, err := j.Prune(ctx); err != nil {
		log := logging.WithComponent("cron")
		log.Error().Err(err).Str("job_name", j.Name()).Msg("visit pruning failed")
	}
}

// Prune removes expired visits and returns how many were deleted.
func (j *PruneVisitsJob) Prune(ctx context.Context) (int64, error) {
	if j.retention <= 0 {
		return 0, nil
	}
	cutoff := j.now().Add(-j.retention)
	removed, err := j.visits.DeleteVisitsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.VisitsPruned.Add(float64(removed))
	if removed > 0 && j.invalidator != nil {
		if err := j.invalidator.Invalidate(ctx); err != nil {
			log := logging.WithComponent("cron")
			log.Warn().Err(err).Msg("analytics cache invalidation failed")
		}
	}
	log := logging.WithComponent("cron")
	log.Info().
		Int64("removed", removed).
		Time("cutoff", cutoff).
		Msg("expired visits pruned")
	return removed, nil
}
