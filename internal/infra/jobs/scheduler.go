// Package jobs runs recurring maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"rentals/internal/app/schedule"
	rentalsvc "rentals/internal/app/services/rentals"
)

const ExpirePendingJob = "expire_pending_rentals"

// Scheduler wraps cron with UTC times. Jobs never overlap with themselves.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	timeout time.Duration
	logger  *slog.Logger
}

func NewScheduler(ctx context.Context, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		ctx:     ctx,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Scheduler) Register(name, spec string, job schedule.Job) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.run(name, job)
	}))
	if _, err := s.cron.AddJob(spec, wrapped); err != nil {
		return fmt.Errorf("jobs: register %s: %w", name, err)
	}
	s.logger.Info("job registered", "job", name, "spec", spec)
	return nil
}

func (s *Scheduler) run(name string, job schedule.Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "duration_ms", time.Since(started).Milliseconds())
		return
	}
	s.logger.Debug("job finished", "job", name, "duration_ms", time.Since(started).Milliseconds())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ExpirePending builds the job that cancels stale pending rentals.
func ExpirePending(svc *rentalsvc.Service, logger *slog.Logger) schedule.Job {
	return func(ctx context.Context) error {
		report, err := svc.ExpirePendingRentals(ctx, time.Time{}).Unpack()
		if err != nil {
			return err
		}
		if logger != nil && len(report.Expired) > 0 {
			logger.InfoContext(ctx, "expired pending rentals", "count", len(report.Expired), "checked", report.Checked)
		}
		if len(report.Failed) > 0 {
			return fmt.Errorf("jobs: %d pending rentals left for the next run", len(report.Failed))
		}
		return nil
	}
}

var _ schedule.Scheduler = (*Scheduler)(nil)
