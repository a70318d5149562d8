package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/apperrors"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/model"
	"github.com/jmoreau/Crypto-Wallet-Analyzer-Backend/internal/progress"
)

// RunStatus is the lifecycle state of one analysis run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the tracked state of one analysis. Result is nil until the run
// completes; Error is empty unless the run failed.
type Run struct {
	ID        string                `json:"id"`
	Status    RunStatus             `json:"status"`
	Progress  int                   `json:"progress"`
	Step      string                `json:"step"`
	Error     string                `json:"error,omitempty"`
	Result    *model.AnalysisResult `json:"-"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// RunRegistry tracks analysis runs in memory, keyed by UUID. Runs live for
// the lifetime of the process; clients poll status and fetch the result once
// completed.
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunRegistry creates an empty run registry.
func NewRunRegistry() *RunRegistry {
	return &RunRegistry{runs: make(map[string]*Run)}
}

// Create registers a new pending run and returns its ID.
func (r *RunRegistry) Create() string {
	id := uuid.New().String()
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[id] = &Run{
		ID:        id,
		Status:    RunPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Get returns a copy of the run's current state.
//
// Returns:
//   - apperrors.ErrRunNotFound if no run exists under the ID
func (r *RunRegistry) Get(id string) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return Run{}, apperrors.ErrRunNotFound
	}
	return *run, nil
}

// Result returns the completed run's analysis result.
//
// Returns:
//   - apperrors.ErrRunNotFound if no run exists under the ID
//   - apperrors.ErrRunNotCompleted if the run has not finished successfully
func (r *RunRegistry) Result(id string) (*model.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, apperrors.ErrRunNotFound
	}
	if run.Status != RunCompleted || run.Result == nil {
		return nil, apperrors.ErrRunNotCompleted
	}
	return run.Result, nil
}

// Completed returns copies of all successfully completed runs.
func (r *RunRegistry) Completed() []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	completed := make([]Run, 0)
	for _, run := range r.runs {
		if run.Status == RunCompleted && run.Result != nil {
			completed = append(completed, *run)
		}
	}
	return completed
}

// update applies a mutation to a run under the write lock. Missing IDs are
// ignored; runs are never removed, so this only happens in tests.
func (r *RunRegistry) update(id string, fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return
	}
	fn(run)
	run.UpdatedAt = time.Now().UTC()
}

// start transitions a run to running.
func (r *RunRegistry) start(id string) {
	r.update(id, func(run *Run) {
		run.Status = RunRunning
	})
}

// complete stores the result and transitions the run to completed.
func (r *RunRegistry) complete(id string, result *model.AnalysisResult) {
	r.update(id, func(run *Run) {
		run.Status = RunCompleted
		run.Progress = 100
		run.Step = "completed"
		run.Result = result
	})
}

// fail records the error and transitions the run to failed.
func (r *RunRegistry) fail(id string, err error) {
	r.update(id, func(run *Run) {
		run.Status = RunFailed
		run.Error = err.Error()
	})
}

// setResult replaces a completed run's result. Used by the scheduled
// current-value refresh.
func (r *RunRegistry) setResult(id string, result *model.AnalysisResult) {
	r.update(id, func(run *Run) {
		if run.Status == RunCompleted {
			run.Result = result
		}
	})
}

// runReporter is a progress.Reporter that records progress on a registry
// run and forwards log lines to an inner reporter.
type runReporter struct {
	registry *RunRegistry
	id       string
	inner    progress.Reporter
}

func (r *runReporter) Progress(percent int, step string) {
	r.registry.update(r.id, func(run *Run) {
		run.Progress = percent
		run.Step = step
	})
	r.inner.Progress(percent, step)
}

func (r *runReporter) Log(level progress.Level, message string) {
	r.inner.Log(level, message)
}

// bandReporter rescales a stage's 0-100 progress into a band of the overall
// run, so the valuation stage can report fine-grained progress without
// knowing its position in the pipeline.
type bandReporter struct {
	inner    progress.Reporter
	lo, hi   int
	stepName string
}

func (b *bandReporter) Progress(percent int, _ string) {
	scaled := b.lo + percent*(b.hi-b.lo)/100
	b.inner.Progress(scaled, b.stepName)
}

func (b *bandReporter) Log(level progress.Level, message string) {
	b.inner.Log(level, message)
}
