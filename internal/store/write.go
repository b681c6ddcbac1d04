package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/pagecheck/internal/report"
)

// Run is one recorded check run.
type Run struct {
	ID         string
	Contract   string
	BaseURL    string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Passed     int
	Failed     int
	Faulted    int
}

// ErrDuplicateRun is returned when a run id is already recorded.
var ErrDuplicateRun = errors.New("run already recorded")

// RunOf builds the run row for a finished report.
func RunOf(id, baseURL string, started, finished time.Time, s report.Summary) Run {
	return Run{
		ID:         id,
		Contract:   s.Contract,
		BaseURL:    baseURL,
		StartedAt:  started,
		FinishedAt: finished,
		Total:      s.Total,
		Passed:     s.Passed,
		Failed:     s.Failed,
		Faulted:    s.Faulted,
	}
}

// WriteRun records a run and its entries in one transaction. Entries keep
// their report order as seq.
func (s *Store) WriteRun(ctx context.Context, run Run, entries []report.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, contract, base_url, started_at, finished_at, total, passed, failed, faulted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Contract,
		run.BaseURL,
		run.StartedAt.UnixNano(),
		run.FinishedAt.UnixNano(),
		run.Total,
		run.Passed,
		run.Failed,
		run.Faulted,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("write run %s: %w", run.ID, ErrDuplicateRun)
	}

	for i, e := range entries {
		if err := writeEntry(ctx, tx, run.ID, i, e); err != nil {
			return fmt.Errorf("write run %s: entry %q: %w", run.ID, e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeEntry(ctx context.Context, tx *sql.Tx, runID string, seq int, e report.Entry) error {
	expected, err := marshalOutcome(e.Expected)
	if err != nil {
		return err
	}
	actual, err := marshalOutcome(e.Actual)
	if err != nil {
		return err
	}
	errs, err := marshalErrors(e.Errors)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results
		(run_id, seq, name, route, verdict, expected, actual, fault, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, seq, e.Name, e.Route, string(e.Verdict), expected, actual, e.Fault, errs)
	if err != nil {
		return err
	}

	if e.Timing == nil {
		return nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO timings (run_id, seq, runs, mean_ns, ceiling_ns)
		VALUES (?, ?, ?, ?, ?)
	`, runID, seq, e.Timing.Runs, int64(e.Timing.Mean), int64(e.Timing.Ceiling))
	return err
}
