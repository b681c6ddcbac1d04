package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/pagecheck/internal/report"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, contract, base_url, started_at, finished_at, total, passed, failed, faulted`

// ListRuns returns the most recent runs first. limit <= 0 means all runs.
//
// Returns an empty slice (not nil) when nothing is recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run and its entries in report order.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []report.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, err
	}

	entries, err := s.readEntries(ctx, id)
	if err != nil {
		return Run{}, nil, err
	}
	return run, entries, nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, []report.Entry, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, nil, err
	}
	if len(runs) == 0 {
		return Run{}, nil, ErrRunNotFound
	}
	return s.ReadRun(ctx, runs[0].ID)
}

func (s *Store) readEntries(ctx context.Context, runID string) ([]report.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name, r.route, r.verdict, r.expected, r.actual, r.fault, r.errors,
		       t.runs, t.mean_ns, t.ceiling_ns
		FROM results r
		LEFT JOIN timings t ON t.run_id = r.run_id AND t.seq = r.seq
		WHERE r.run_id = ?
		ORDER BY r.seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	entries := []report.Entry{}
	for rows.Next() {
		var (
			e                         report.Entry
			verdict, expected, actual string
			errs                      string
			runs, mean, ceiling       sql.NullInt64
		)
		if err := rows.Scan(&e.Name, &e.Route, &verdict, &expected, &actual, &e.Fault, &errs,
			&runs, &mean, &ceiling); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		e.Verdict = report.Verdict(verdict)
		if e.Expected, err = unmarshalOutcome(expected); err != nil {
			return nil, err
		}
		if e.Actual, err = unmarshalOutcome(actual); err != nil {
			return nil, err
		}
		if e.Errors, err = unmarshalErrors(errs); err != nil {
			return nil, err
		}
		if runs.Valid {
			e.Timing = &report.Timing{
				Runs:    int(runs.Int64),
				Mean:    time.Duration(mean.Int64),
				Ceiling: time.Duration(ceiling.Int64),
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		started, finished int64
	)
	err := row.Scan(&run.ID, &run.Contract, &run.BaseURL, &started, &finished,
		&run.Total, &run.Passed, &run.Failed, &run.Faulted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.Unix(0, started).UTC()
	run.FinishedAt = time.Unix(0, finished).UTC()
	return run, nil
}
