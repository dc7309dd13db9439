package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hbomb79/Hermes/internal/metrics"
	"github.com/hbomb79/Hermes/pkg/logger"
)

// housekeepingError describes a filesystem failure encountered while
// cleaning up. These are only ever logged, never returned to a caller.
type housekeepingError struct {
	op   string
	path string
	err  error
}

func (e *housekeepingError) Error() string {
	return fmt.Sprintf("%s of '%s' failed: %s", e.op, e.path, e.err)
}

func (e *housekeepingError) Unwrap() error { return e.err }

func reportHousekeeping(op string, path string, err error) {
	herr := &housekeepingError{op, path, err}
	log.Emit(logger.WARNING, "%s\n", herr)
	metrics.IncHousekeepingFailure(op)
}

type removeFunc func(path string) (bool, error)

// removeFile deletes the file at the path provided. A file which
// does not exist is not an error; the boolean result reports whether
// a file was actually removed.
func removeFile(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// SweepDirectory scans the directory (non-recursively) for regular files whose
// name matches the glob pattern and whose modtime is more than 'window' before
// 'now', and deletes them. Failure to inspect or remove one entry is reported
// and does not stop the scan. If onRemoved is not nil, it is called with the path
// of each file immediately after that file is deleted. The paths of all removed
// files are returned.
func SweepDirectory(dir string, pattern string, window time.Duration, now time.Time, onRemoved func(path string)) []string {
	return sweepDirectory(dir, pattern, window, now, removeFile, onRemoved)
}

func sweepDirectory(dir string, pattern string, window time.Duration, now time.Time, remove removeFunc, onRemoved func(path string)) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			reportHousekeeping("sweep", dir, err)
		}

		return nil
	}

	removed := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between listing and stat (e.g. a timer beat us to it)
			if !errors.Is(err, fs.ErrNotExist) {
				reportHousekeeping("stat", path, err)
			}
			continue
		}

		if !info.Mode().IsRegular() || now.Sub(info.ModTime()) <= window {
			continue
		}

		ok, err := remove(path)
		if err != nil {
			reportHousekeeping("sweep delete", path, err)
			continue
		}

		if ok {
			removed = append(removed, path)
			if onRemoved != nil {
				onRemoved(path)
			}
		}
	}

	return removed
}

// ResetDirectory deletes every entry (files and sub-directories) inside
// the directory, and then ensures the directory itself exists.
func ResetDirectory(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		reportHousekeeping("reset", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			reportHousekeeping("reset delete", path, err)
			continue
		}

		log.Emit(logger.REMOVE, "Deleted %s during startup\n", path)
	}

	if err := os.MkdirAll(dir, os.ModeDir|0o755); err != nil {
		reportHousekeeping("create", dir, err)
	}
}
