package jobs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TempSweeper deletes spooled upload files left behind by a crashed process.
type TempSweeper struct {
	Dir     string
	Pattern string
	MaxAge  time.Duration
}

// Sweep removes matching files last modified before now-MaxAge and returns
// how many were removed.
func (s *TempSweeper) Sweep(now time.Time) (int, error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(dir, s.Pattern))
	if err != nil {
		return 0, fmt.Errorf("glob %s: %w", s.Pattern, err)
	}

	cutoff := now.Add(-s.MaxAge)
	removed := 0
	var errs []error
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
