// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"fmt"

	"github.com/crawlerlog/internal/logging"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler 封装 cron 实例，负责任务注册、启动与停止。
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewScheduler creates a scheduler whose jobs recover from panics, are logged
// and never overlap with themselves.
func NewScheduler() *Scheduler {
	logger := logging.WithComponent("cron")
	c := cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.DelayIfStillRunning(cronLogger{logger: logger}),
		),
	)
	return &Scheduler{cron: c, logger: logger}
}

// Register adds job under the given spec (standard five-field syntax or @descriptors).
func (s *Scheduler) Register(spec string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("register job %s: %w", jobName(job), err)
	}
	s.logger.Info().Str("job_name", jobName(job)).Str("schedule", spec).Msg("job registered")
	return nil
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("cron scheduler started")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("stopping cron scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("cron scheduler stopped")
}
