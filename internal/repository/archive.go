package repository

import (
	"context"
	"fmt"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

// Archive is the persisted, deduplicated set of every fix ever ingested.
// It is read once at the start of a run and written once at the end.
type Archive interface {
	// Load returns the archived fixes in insertion order. Rows that cannot
	// be parsed or repeat an earlier key are dropped and returned as
	// rejected; only an unreadable store is an error.
	Load(ctx context.Context) ([]models.Fix, []models.RejectedRow, error)
	// Save persists the reconciled archive. added is the subset not yet
	// stored.
	Save(ctx context.Context, all, added []models.Fix) error
	Path() string
	Close() error
}

// ArchiveIOError reports a failure to read or write the persisted archive.
// It aborts the run.
type ArchiveIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArchiveIOError) Error() string {
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveIOError) Unwrap() error { return e.Err }

// Archive backends
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// OpenArchive returns the archive handle for backend at path
func OpenArchive(backend, path string) (Archive, error) {
	switch backend {
	case BackendCSV, "":
		return NewCSVArchive(path), nil
	case BackendSQLite:
		return OpenSQLiteArchive(path)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", backend)
	}
}
