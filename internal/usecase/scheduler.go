package usecase

import (
	"context"
	"time"

	"wartracker/internal/ports"
)

// Scheduler wires the interval driver with the cycle runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, runner *Runner) *Scheduler {
	return &Scheduler{driver: driver, runner: runner}
}

// Start registers the runner with the provided driver. A tick that lands
// while a cycle is still running is dropped, not queued.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(time.Time) {
		_, _ = s.runner.Trigger(ctx, CycleOptions{})
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
