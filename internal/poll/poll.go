// Package poll provides the bounded-retry polling primitive used to drive
// remote assistant runs to completion.
package poll

import (
	"context"
	"time"
)

// Check reports whether the watched operation has finished. Returning an
// error aborts the poll immediately; the error propagates to the caller
// unchanged.
type Check func(ctx context.Context) (bool, error)

// Until invokes check up to maxAttempts times, sleeping interval between
// attempts. It returns (true, nil) as soon as check reports done and
// (false, nil) only after the attempt budget is exhausted, which callers
// must treat as a timeout distinct from a propagated failure.
//
// Each call owns its own timer, so concurrent polls never block one
// another. Context cancellation interrupts the sleep and returns ctx.Err().
func Until(ctx context.Context, check Check, interval time.Duration, maxAttempts int) (bool, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		done, err := check(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if attempt == maxAttempts-1 {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	return false, nil
}
