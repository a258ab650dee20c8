package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rdallagnolo/repo-fad-tracking/internal/repository"
)

func TestRunnerKeepsLatest(t *testing.T) {
	opts, _ := setup(t, repository.BackendCSV)
	r := NewRunner(opts)

	if r.Latest() != nil {
		t.Fatal("no result expected before the first run")
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if r.Latest() != res {
		t.Errorf("Latest does not return the last result")
	}
	if at, err := r.LastRun(); at.IsZero() || err != nil {
		t.Errorf("LastRun = %v, %v", at, err)
	}
}

func TestRunnerTryRunWhileBusy(t *testing.T) {
	opts, _ := setup(t, repository.BackendCSV)
	r := NewRunner(opts)

	r.run.Lock()
	_, err := r.TryRun(context.Background())
	r.run.Unlock()

	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := r.TryRun(context.Background()); err != nil {
		t.Fatalf("TryRun after release failed: %v", err)
	}
}

func TestRunnerKeepsPreviousResultOnFailure(t *testing.T) {
	opts, _ := setup(t, repository.BackendCSV)
	r := NewRunner(opts)
	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	lock, err := repository.AcquireLock(opts.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail while the archive is locked")
	}
	if r.Latest() != first {
		t.Errorf("failed run replaced the previous result")
	}
	if _, err := r.LastRun(); err == nil {
		t.Errorf("LastRun should report the failure")
	}
}
