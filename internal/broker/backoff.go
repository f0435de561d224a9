package broker

import (
	"context"
	"time"
)

// Backoff is a fixed delay between failed connection attempts.
type Backoff struct {
	Delay time.Duration
	// Sleep waits d and reports whether the full delay elapsed. Nil uses a
	// timer that gives up early when ctx is cancelled.
	Sleep func(ctx context.Context, d time.Duration) bool
	// AfterWait runs after every wait, cancelled or not.
	AfterWait func(ctx context.Context)
}

func NewFixedBackoff(delay time.Duration) *Backoff {
	return &Backoff{Delay: delay}
}

func (b *Backoff) Wait(ctx context.Context) bool {
	if b.AfterWait != nil {
		defer b.AfterWait(ctx)
	}
	if b.Sleep != nil {
		return b.Sleep(ctx, b.Delay)
	}

	timer := time.NewTimer(b.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
