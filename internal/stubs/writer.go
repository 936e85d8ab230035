package stubs

import (
	"os"
	"path/filepath"

	"github.com/mvp-joe/stubgen/internal/errors"
)

// AtomicWriter writes files using the temp → rename pattern so readers only
// ever observe the previous content or the complete new content.
type AtomicWriter struct {
	perm os.FileMode
}

// NewAtomicWriter creates a writer producing files with mode 0644.
func NewAtomicWriter() *AtomicWriter {
	return &AtomicWriter{perm: 0644}
}

// Write replaces path with data. On failure the existing file is left
// untouched and no temp file remains.
func (w *AtomicWriter) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return writeFailure(err, "failed to create output directory %s", dir)
	}

	// Temp file lives beside the target so the rename never crosses filesystems
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return writeFailure(err, "failed to create temp file in %s", dir)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return writeFailure(err, "failed to write temp file for %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return writeFailure(err, "failed to sync temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return writeFailure(err, "failed to close temp file for %s", path)
	}
	if err := os.Chmod(tempPath, w.perm); err != nil {
		os.Remove(tempPath)
		return writeFailure(err, "failed to set permissions on %s", path)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return writeFailure(err, "failed to replace %s", path)
	}
	return nil
}

func writeFailure(err error, format string, args ...interface{}) error {
	return errors.Wrapf(errors.Mark(err, errors.ErrWriteFailure), format, args...)
}
