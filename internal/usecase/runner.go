package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"wartracker/internal/domain"
)

// ErrCycleRunning is returned when a trigger arrives while a cycle is still
// in flight. One writer at a time is what keeps the dedup engine's
// read-then-write pattern safe.
var ErrCycleRunning = errors.New("ingestion cycle already running")

// RunState is the last-run summary exposed on the status surface.
type RunState struct {
	Running         bool               `json:"running"`
	StartedAt       time.Time          `json:"started_at"`
	LastCompletedAt time.Time          `json:"last_completed_at"`
	LastDurationMS  int64              `json:"last_duration_ms"`
	LastError       string             `json:"last_error,omitempty"`
	LastStats       *domain.CycleStats `json:"last_stats,omitempty"`
}

// Runner serializes cycle executions and records their outcomes. Scheduled
// and on-demand triggers both go through Trigger.
type Runner struct {
	orch *Orchestrator

	mu    sync.Mutex
	state RunState
}

// NewRunner wraps the orchestrator with single-flight semantics.
func NewRunner(orch *Orchestrator) *Runner {
	return &Runner{orch: orch}
}

// Trigger runs one cycle unless another is already in flight.
func (r *Runner) Trigger(ctx context.Context, opts CycleOptions) (domain.CycleStats, error) {
	r.mu.Lock()
	if r.state.Running {
		r.mu.Unlock()
		return domain.CycleStats{}, ErrCycleRunning
	}
	r.state.Running = true
	r.state.StartedAt = time.Now()
	r.mu.Unlock()

	stats, err := r.orch.RunCycle(ctx, opts)

	r.mu.Lock()
	r.state.Running = false
	r.state.LastCompletedAt = time.Now()
	r.state.LastDurationMS = stats.DurationMS
	r.state.LastStats = &stats
	if err != nil {
		r.state.LastError = err.Error()
	} else {
		r.state.LastError = ""
	}
	r.mu.Unlock()

	return stats, err
}

// State returns a copy of the current run state.
func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
