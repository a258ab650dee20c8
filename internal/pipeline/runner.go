package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunInProgress is returned by TryRun while another run holds the runner.
var ErrRunInProgress = errors.New("a run is already in progress")

// Runner serializes pipeline runs inside one process and keeps the last
// successful result for readers.
type Runner struct {
	opts Options

	run sync.Mutex

	mu      sync.RWMutex
	latest  *Result
	lastErr error
	lastAt  time.Time
}

// NewRunner creates a runner for opts
func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts}
}

// Run waits for any run in progress, then runs the pipeline once.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.run.Lock()
	defer r.run.Unlock()
	return r.execute(ctx)
}

// TryRun runs the pipeline unless a run is already in progress.
func (r *Runner) TryRun(ctx context.Context) (*Result, error) {
	if !r.run.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.run.Unlock()
	return r.execute(ctx)
}

func (r *Runner) execute(ctx context.Context) (*Result, error) {
	res, err := NewPipeline(r.opts).Run(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
	r.lastAt = time.Now().UTC()
	if err == nil {
		r.latest = res
	}
	return res, err
}

// Latest returns the last successful result, or nil before the first one.
func (r *Runner) Latest() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// LastRun reports when the most recent run finished and its error.
func (r *Runner) LastRun() (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastAt, r.lastErr
}
