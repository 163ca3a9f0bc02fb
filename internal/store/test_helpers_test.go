package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/phaseforge/internal/testutil"
	"github.com/roach88/phaseforge/internal/visual"
)

// createTestStore opens a fresh SQLite store with a step clock and
// sequential ids (tpl-1, tpl-2, ...).
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, Options{
		Now:   testutil.NewStepClock(time.Time{}, time.Minute).Now,
		IDGen: visual.NewSequenceGenerator("tpl"),
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
