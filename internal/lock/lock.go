// Package lock provides the advisory lock that keeps the watch loop and
// one-shot admin commands from writing the same index at once.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// FileLock is a cross-process exclusive lock backed by gofrs/flock.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// ForIndex returns the lock guarding the index at indexPath.
// The lock file lives beside the index as <indexPath>.lock so that
// purging or rebuilding the index directory never removes it.
func ForIndex(indexPath string) *FileLock {
	return New(filepath.Clean(indexPath) + ".lock")
}

// New creates a lock on the file at path. Nothing is acquired yet.
func New(path string) *FileLock {
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock blocks until the lock is acquired.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if another holder has it.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Acquire takes the lock without waiting and reports a held lock as an
// IndexLockedError naming indexPath.
func (l *FileLock) Acquire(indexPath string) error {
	ok, err := l.TryLock()
	if err != nil {
		return dwerrors.InternalError("cannot lock index", err).
			WithDetail("lock", l.path)
	}
	if !ok {
		return dwerrors.IndexLockedError(indexPath)
	}
	return nil
}

// Unlock releases the lock. Safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether this FileLock holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}
