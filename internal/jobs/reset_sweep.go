// Package jobs schedules background maintenance with robfig/cron.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// DefaultSweepSchedule runs the sweep at the top of every hour.
	DefaultSweepSchedule = "@hourly"
	sweepTimeout         = time.Minute
)

// Sweeper clears expired password reset tokens.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// SweepRecorder receives the number of tokens each run cleared.
type SweepRecorder interface {
	ResetTokensSwept(n int64)
}

// Scheduler wraps a cron runner with the directory's maintenance jobs.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	recorder SweepRecorder
	logger   *zap.Logger
}

func NewScheduler(sweeper Sweeper, recorder SweepRecorder, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sweeper:  sweeper,
		recorder: recorder,
		logger:   logger,
	}
}

// Start registers the reset sweep under schedule and starts the runner.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.RunSweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("reset token sweep scheduled", zap.String("schedule", schedule))
	return nil
}

// RunSweep performs one sweep. Errors are logged; the next tick retries.
func (s *Scheduler) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cleared, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("reset token sweep failed", zap.Error(err))
		return
	}
	if s.recorder != nil {
		s.recorder.ResetTokensSwept(cleared)
	}
	if cleared > 0 {
		s.logger.Info("expired reset tokens cleared", zap.Int64("count", cleared))
	}
}

// Stop halts scheduling and waits for a running job up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("cron stop timed out")
	}
}
