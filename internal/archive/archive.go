// Package archive moves directories of generated media aside so a fresh
// one is started on the next run.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrNothingToArchive is returned when the directory does not exist.
var ErrNothingToArchive = errors.New("nothing to archive")

// Directory moves dir to <parent>/archive/<base>-<timestamp> and returns
// the new path.
func Directory(dir string, now time.Time) (string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNothingToArchive, dir)
	}

	archiveDir := filepath.Join(filepath.Dir(dir), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(dir)
	target := filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, now.Format("20060102-150405")))
	if _, err := os.Stat(target); err == nil {
		// Same second as an earlier archive
		target = filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, now.Format("20060102-150405.000000")))
	}

	if err := os.Rename(dir, target); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", dir, err)
	}
	return target, nil
}
