package services

import (
	"os"
	"path/filepath"

	"screentime-bar/src/lib"
)

// writeFileAtomic replaces path with data in one rename so a crash mid-write
// leaves either the old file or the new one, never a torn mix.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lib.PersistenceError(err, "failed to create directory").
			WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return lib.PersistenceError(err, "failed to create temp file").
			WithContext("dir", dir)
	}
	tmpName := tmp.Name()
	// Only removes anything if the rename below did not happen.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return lib.PersistenceError(err, "failed to write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return lib.PersistenceError(err, "failed to sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return lib.PersistenceError(err, "failed to close temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return lib.PersistenceError(err, "failed to set file mode")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return lib.PersistenceError(err, "failed to replace file").
			WithContext("path", path)
	}
	return nil
}
