package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrArchiveLocked is returned when another run holds the archive lock.
var ErrArchiveLocked = errors.New("archive is locked by another run")

// ArchiveLock is an exclusive lock file guarding one read-merge-write cycle
type ArchiveLock struct {
	path string
}

// LockPath returns the lock file used for an archive
func LockPath(archivePath string) string {
	return archivePath + ".lock"
}

// AcquireLock creates the lock file for archivePath. It fails when the file
// already exists; a lock left behind by a crashed run must be removed by hand.
func AcquireLock(archivePath string) (*ArchiveLock, error) {
	path := LockPath(archivePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &ArchiveIOError{Op: "lock", Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, &ArchiveIOError{Op: "lock", Path: path, Err: ErrArchiveLocked}
	}
	if err != nil {
		return nil, &ArchiveIOError{Op: "lock", Path: path, Err: err}
	}
	fmt.Fprintf(f, "pid=%s\nsince=%s\n", strconv.Itoa(os.Getpid()), time.Now().UTC().Format(time.RFC3339))
	f.Close()
	return &ArchiveLock{path: path}, nil
}

// Release removes the lock file
func (l *ArchiveLock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
