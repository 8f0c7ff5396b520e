package files

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// TempPattern is the os.CreateTemp pattern WriteFileAtomic stages through.
// Each call gets its own sibling file, so concurrent writers never share one.
func TempPattern(path string) string {
	return filepath.Base(path) + ".*.tmp"
}

// WriteFileAtomic writes data next to path and renames it into place, so
// readers see either the old content or the new, never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create parent dir")
	}
	f, err := os.CreateTemp(dir, TempPattern(path))
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp := f.Name()
	fail := func(err error, msg string) error {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, msg)
	}
	if err := f.Chmod(perm); err != nil {
		return fail(err, "chmod temp file")
	}
	if _, err := f.Write(data); err != nil {
		return fail(err, "write temp file")
	}
	if err := f.Sync(); err != nil {
		return fail(err, "sync temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
