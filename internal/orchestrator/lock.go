package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ProjectLock is the process-wide advisory lock the orchestrator acquires on
// startup, guaranteeing a single writer across the store's SQLite connection
// and the on-disk state directory (spec §5). Grounded on the teacher's
// internal/embed.FileLock, generalized from an embedder-cache-download lock
// to the orchestrator's whole-state-directory lock.
type ProjectLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewProjectLock returns a lock for <dataDir>/.orchestrator.lock.
func NewProjectLock(dataDir string) *ProjectLock {
	path := filepath.Join(dataDir, ".orchestrator.lock")
	return &ProjectLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking, returning false if
// another process already holds it.
func (l *ProjectLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("orchestrator: create state dir: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("orchestrator: acquire lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *ProjectLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("orchestrator: release lock: %w", err)
	}
	l.locked = false
	return nil
}
