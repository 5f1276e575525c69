package usecase

import (
	"context"
	"log/slog"
	"time"

	"tonetracker/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	params   RunParams
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, params RunParams, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, params: params, logger: logger}
}

// Start registers the pipeline with the provided scheduler. Overlapping
// triggers are skipped while a run is in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		state := s.pipeline.State()
		switch state {
		case StateIdle, StateDone, StateFailed:
		default:
			s.logger.Warn("run skipped: previous run still in flight", "state", string(state))
			return
		}
		if _, err := s.pipeline.Run(ctx, s.params); err != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger.Format(time.RFC3339), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
