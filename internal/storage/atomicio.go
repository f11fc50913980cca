package storage

import (
	"os"
	"path/filepath"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// writeFileAtomic writes data to path via a temp-file-then-rename: writes
// must always land on the canonical path atomically, so renaming
// guarantees a reader never observes a partially-written op-state or
// journal file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := mkdirAll(dir); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to create directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to fsync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to set file permissions", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to rename into place", err)
	}
	return nil
}
