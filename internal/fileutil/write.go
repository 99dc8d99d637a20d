package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/giantswarm/simenv/internal/sentinel"
)

// ErrEmptyPath is returned when a destination path is empty.
const ErrEmptyPath = sentinel.Error("destination path must not be empty")

// WriteFileAtomic streams the output of write into path, creating parent
// directories as needed. Data goes to a temporary file in the same directory
// which is synced and then renamed over path, so concurrent readers never
// observe a partially written file. On any error the temporary file is removed
// and path is left untouched.
func WriteFileAtomic(path string, mode os.FileMode, write func(io.Writer) error) (retErr error) {
	if path == "" {
		return ErrEmptyPath
	}
	if err := EnsureDirForFile(path); err != nil {
		return fmt.Errorf("prepare destination: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := write(tmpFile); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write: %w", err)
	}

	return finalizeWrite(tmpFile, tmpPath, path)
}

// finalizeWrite syncs, closes, and renames the temporary file onto dst.
func finalizeWrite(f *os.File, tmpPath, dst string) error {
	// fsync before rename; without it a crash could leave the renamed file
	// with incomplete contents.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename temp file to destination: %w", err)
	}
	return nil
}
