package driver

import (
	"context"
	"errors"
	"time"
)

// DefaultPollInterval is used by Poll when interval is not positive.
const DefaultPollInterval = 100 * time.Millisecond

// Poll evaluates cond immediately and then every interval until it holds,
// it fails, or timeout elapses. Timing out is (false, nil). Cancellation of
// the parent context is returned as its error.
func Poll(ctx context.Context, interval, timeout time.Duration, cond Condition) (bool, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return false, nil
			}
			return false, err
		}
		if ok {
			return true, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		case <-ticker.C:
		}
	}
}
