// Package utils holds small context-aware helpers shared across packages.
package utils

import (
	"context"
	"time"
)

// newTimer is replaced in tests to avoid real waits.
var newTimer = time.NewTimer

// WaitFor blocks for d or until ctx is cancelled, whichever comes first.
// It backs the retry delays in the assessment client. A zero or negative
// duration returns immediately, reporting only the context's state.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := newTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
