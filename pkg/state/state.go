package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureStateDirs ensures the canonical runtime folder layout exists under
// the provided data path. It rejects symlinks and permissive modes, and
// verifies the process can write into each directory.
func EnsureStateDirs(dataPath string) error {
	storePath := filepath.Join(dataPath, "store")
	statePath := filepath.Join(dataPath, "state")
	filesPath := filepath.Join(dataPath, "files")
	retentionPath := filepath.Join(statePath, "retention")
	crashPath := filepath.Join(statePath, "crash")
	tmpPath := filepath.Join(statePath, "tmp")

	paths := []string{storePath, filesPath, retentionPath, crashPath, tmpPath}

	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return fmt.Errorf("cannot create parent for %s: %w", p, err)
		}

		if fi, err := os.Lstat(p); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", p)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", p)
			}
			if fi.Mode().Perm()&0o022 != 0 {
				return fmt.Errorf("path has permissive mode (group/other write): %s", p)
			}
		}

		if err := os.MkdirAll(p, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", p, err)
		}

		// writability check: create and remove a temp file
		tmp, err := os.CreateTemp(p, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", p, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	return nil
}

// StorePath returns the pebble directory under the data path.
func StorePath(dataPath string) string {
	return filepath.Join(dataPath, "store")
}

// FilesPath returns the attachment directory under the data path.
func FilesPath(dataPath string) string {
	return filepath.Join(dataPath, "files")
}

// RetentionPath returns the retention report directory under the data path.
func RetentionPath(dataPath string) string {
	return filepath.Join(dataPath, "state", "retention")
}
