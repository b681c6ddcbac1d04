package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/pagecheck/internal/driver"
)

// Timing runs sc the configured number of times, strictly one after the
// other on sess, and checks the mean latency against the ceiling.
//
// Every run must produce the expected outcome; the first run that does not,
// or that faults, ends the check as failed. As with Run, the returned error
// is reserved for scenarios that cannot run at all.
func (r *Runner) Timing(ctx context.Context, sess *Session, sc *Scenario) (*TimingResult, error) {
	if err := sc.CheckAgainst(r.contract); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	expected, err := sc.Expected(r.contract)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	runs, ceiling := r.contract.Timing.Runs, r.contract.Timing.Ceiling
	if sc.Timing != nil {
		if sc.Timing.Runs > 0 {
			runs = sc.Timing.Runs
		}
		if sc.Timing.Ceiling > 0 {
			ceiling = sc.Timing.Ceiling
		}
	}
	if runs < 1 {
		runs = 1
	}

	res := &TimingResult{
		Name:      sc.Name,
		Route:     sc.Route,
		SessionID: sess.ID,
		Expected:  expected,
		Runs:      runs,
		Ceiling:   ceiling,
	}
	log := sess.logger(r.logger).With("scenario", sc.Name)

	for i := 0; i < runs; i++ {
		got, elapsed, err := r.Execute(ctx, sess, sc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if driver.IsFault(err) {
				res.Fault = err.Error()
			}
			res.Failure = fmt.Sprintf("run %d: %v", i+1, err)
			res.Mean = Mean(res.Samples)
			return res, nil
		}
		if !got.Equal(expected) {
			res.Failure = fmt.Sprintf("run %d: %s", i+1, describeMismatch(expected, got))
			res.Mean = Mean(res.Samples)
			return res, nil
		}
		res.Samples = append(res.Samples, elapsed)
		log.Debug("timing sample", "run", i+1, "elapsed", elapsed)
	}

	res.Mean = Mean(res.Samples)
	res.Pass = res.Mean < ceiling
	if !res.Pass {
		res.Failure = fmt.Sprintf("mean %s over %d runs is not below the %s ceiling", res.Mean, runs, ceiling)
	}
	return res, nil
}

// Mean is the arithmetic mean of samples, zero for none.
func Mean(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return total / time.Duration(len(samples))
}
