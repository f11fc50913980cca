// Package storage implements lattice's durable substrate: the
// compare-and-swap metadata store, the event ledger, the repository lock,
// and the operation journal/op-state files.
// Every path here lives under the repository's shared directory
// (<git-common-dir>/lattice/), never inside a per-worktree directory, so
// that a single lock and a single op-state file serialize mutations across
// every worktree of one repository.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// SharedDir returns the lattice state directory for a repository whose
// git-common-dir is commonDir.
func SharedDir(commonDir string) string {
	return filepath.Join(commonDir, "lattice")
}

func lockPath(commonDir string) string {
	return filepath.Join(SharedDir(commonDir), "lock")
}

// RepoLock is the single OS-level advisory lock serializing mutations
// across every working tree of one repository: a gofrs/flock file lock at
// a well-known path, non-blocking try-lock so contention surfaces as a
// typed error rather than hanging the caller.
type RepoLock struct {
	fl *flock.Flock
}

// NewRepoLock constructs (without acquiring) the lock for a repository
// whose git-common-dir is commonDir.
func NewRepoLock(commonDir string) *RepoLock {
	return &RepoLock{fl: flock.New(lockPath(commonDir))}
}

// TryAcquire attempts to take the lock without blocking. A held lock (by
// this or another process) surfaces as AnotherOperationInProgress: missing
// the lock means failing fast, never waiting.
func (l *RepoLock) TryAcquire() error {
	locked, err := l.fl.TryLock()
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to acquire repository lock", err)
	}
	if !locked {
		return latticeerrors.AnotherOperationInProgress("")
	}
	return nil
}

// Release gives up the lock. Safe to call even if TryAcquire never
// succeeded.
func (l *RepoLock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to release repository lock", err)
	}
	return nil
}

// EnsureSharedDir creates the lattice shared directory if absent.
func EnsureSharedDir(commonDir string) error {
	dir := SharedDir(commonDir)
	if err := mkdirAll(dir); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, fmt.Sprintf("failed to create %s", dir), err)
	}
	return nil
}
