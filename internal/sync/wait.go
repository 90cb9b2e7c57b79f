// ABOUTME: High-resolution wait primitive for frame pacing
// ABOUTME: Coarse timer sleep followed by a short cooperative spin
package sync

import (
	"context"
	"runtime"
	"time"
)

// DefaultSpinWindow is how close to the deadline the waiter stops sleeping
// and starts polling. Go timers commonly overshoot by up to ~1ms, so 2ms
// of spin keeps per-frame error well under 2ms without pegging a core.
const DefaultSpinWindow = 2 * time.Millisecond

// Waiter blocks until a deadline or until ctx is done
type Waiter interface {
	WaitUntil(ctx context.Context, deadline time.Time) error
}

// HybridWaiter sleeps until SpinWindow before the deadline, then polls the
// clock, yielding the processor between polls.
type HybridWaiter struct {
	Clock      Clock
	SpinWindow time.Duration
}

// NewHybridWaiter creates a waiter on the system clock
func NewHybridWaiter() *HybridWaiter {
	return &HybridWaiter{Clock: SystemClock{}, SpinWindow: DefaultSpinWindow}
}

// WaitUntil returns nil once the clock reaches deadline, or ctx.Err() if
// the context ends first. A deadline in the past returns immediately.
func (w *HybridWaiter) WaitUntil(ctx context.Context, deadline time.Time) error {
	clock := w.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	if coarse := deadline.Sub(clock.Now()) - w.SpinWindow; coarse > 0 {
		timer := time.NewTimer(coarse)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	for clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}

	return nil
}
