// Package atomicfile writes files by staging their content in a temporary file
// in the same directory and renaming it over the destination. A failed write
// leaves the previous content of the destination untouched.
package atomicfile

import (
	"bytes"
	"github.com/pkg/errors"
	"io"
	"os"
	"path/filepath"
)

// DefaultPerm is the permission used for files created by this package
const DefaultPerm os.FileMode = 0o644

// WriteFile atomically replaces the file at path with data
func WriteFile(path string, data []byte) (err error) {
	return WriteFrom(path, bytes.NewReader(data))
}

// WriteFrom atomically replaces the file at path with everything read from r. The
// destination is only replaced once r has been fully consumed and the staged content
// synced to disk
func WriteFrom(path string, r io.Reader) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory [%s]", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for [%s]", path)
	}
	tmpPath := tmp.Name()

	if _, err = io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to write staged content for [%s]", path)
	}

	if err = tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to sync staged content for [%s]", path)
	}

	if err = tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to close staged content for [%s]", path)
	}

	if err = os.Chmod(tmpPath, DefaultPerm); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to set permissions on staged content for [%s]", path)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to move staged content into [%s]", path)
	}

	return nil
}

// Size returns the size of the file at path. A missing file is reported with
// exists set to false and no error
func Size(path string) (size int64, exists bool, err error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, err
	}

	return fi.Size(), true, nil
}
