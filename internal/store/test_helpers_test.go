package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/pagecheck/internal/outcome"
	"github.com/roach88/pagecheck/internal/report"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestRun builds a run of three entries: a pass, a failure and a
// timing check.
func createTestRun(id string, started time.Time) (Run, []report.Entry) {
	b := report.NewBuilder("observed-react", id)
	b.Add("login_ok", outcome.Success("/distance-to-sun"), outcome.Success("/distance-to-sun"))
	b.Add("latitude_range",
		outcome.ValidationError("Latitude must be between -90 and 90."),
		outcome.Success("/distance-to-sun"))
	b.AddTiming(&harnessTiming)

	s := b.Summary()
	return RunOf(id, "http://app.test", started, started.Add(3*time.Second), s), s.Entries
}
