// Package scheduler runs the pipeline periodically.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MilesGuan/NewsDistill/internal/pipeline"
	"github.com/MilesGuan/NewsDistill/pkg/distill"
)

// Scheduler triggers pipeline runs on a fixed interval, once immediately on
// start.
type Scheduler struct {
	runner   *pipeline.Runner
	interval time.Duration
	log      *slog.Logger
}

// New creates a scheduler.
func New(runner *pipeline.Runner, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{runner: runner, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler: initial run")
	s.runOnce(ctx)
	s.log.Info("scheduler running", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	rep, err := s.runner.RunOnce(ctx)
	if err != nil {
		var exhausted *distill.ExhaustedError
		if errors.As(err, &exhausted) {
			// Distillation failed across every backend: surface the full
			// error report, never a partial result.
			for _, msg := range exhausted.Messages {
				s.log.Error("backend failure", "stage", exhausted.Stage, "msg", msg)
			}
			return
		}
		s.log.Error("pipeline run failed", "err", err)
		return
	}
	s.log.Info("pipeline run complete",
		"date", rep.Date, "items", rep.TotalItems, "new", rep.NewItems,
		"updated", rep.UpdatedItems, "distilled", rep.Distilled)
}
