package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSweepRemovesOnlyStaleMatches(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	touch(t, filepath.Join(dir, "ingest-old"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, "ingest-fresh"), now.Add(-time.Minute))
	touch(t, filepath.Join(dir, "unrelated-old"), now.Add(-2*time.Hour))

	sweeper := &TempSweeper{Dir: dir, Pattern: "ingest-*", MaxAge: time.Hour}
	removed, err := sweeper.Sweep(now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}

	if _, err := os.Stat(filepath.Join(dir, "ingest-old")); !os.IsNotExist(err) {
		t.Error("expected stale upload to be removed")
	}
	for _, keep := range []string{"ingest-fresh", "unrelated-old"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("expected %s to survive: %v", keep, err)
		}
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&TempSweeper{Dir: t.TempDir(), Pattern: "ingest-*"}, "not a cron spec", zerolog.Nop())
	if err := s.Start(); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
