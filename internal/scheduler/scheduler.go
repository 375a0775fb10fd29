package scheduler

import (
	"context"
	"log/slog"
	"time"

	"media_grabber/internal/domain"
)

// Runner performs one grab run.
type Runner interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

// Scheduler repeats runs on a fixed interval. Runs are idempotent on disk,
// so a repeat only fetches photos that are still missing.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start runs immediately, then once per interval until ctx is done. A
// failed run is logged and the next tick tries again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("run failed", "error", err)
	}
}
