package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pagecheck/internal/outcome"
)

// Snapshot is the deterministic part of a Result. Durations and session
// ids are left out so snapshots are stable across runs.
type Snapshot struct {
	Name     string            `json:"name"`
	Route    string            `json:"route"`
	Pass     bool              `json:"pass"`
	Expected outcome.Outcome   `json:"expected"`
	Actual   outcome.Outcome   `json:"actual"`
	Attempts []outcome.Outcome `json:"attempts,omitempty"`
	Fault    string            `json:"fault,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// SnapshotOf extracts the snapshot of a result.
func SnapshotOf(res *Result) Snapshot {
	return Snapshot{
		Name:     res.Name,
		Route:    res.Route,
		Pass:     res.Pass,
		Expected: res.Expected,
		Actual:   res.Actual,
		Attempts: res.Attempts,
		Fault:    res.Fault,
		Errors:   res.Errors,
	}
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// AssertGolden compares the snapshot of result against a golden file.
// The golden file is stored in testdata/golden/{result.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, result *Result) {
	t.Helper()

	data, err := SnapshotOf(result).Marshal()
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Name, data)
}
