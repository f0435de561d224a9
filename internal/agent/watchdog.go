package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/speedwagon-io/trafo-telemetry/internal/journal"
	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/scheduler"
)

// MaxWatchdogThreshold is half the 32-bit millisecond clock range. Above it
// the uptime counter wraps shortly after crossing the threshold.
const MaxWatchdogThreshold = time.Duration(1<<31) * time.Millisecond

// Watchdog restarts the process once uptime reaches a fixed threshold,
// regardless of any other state. Check is polled from the agent loop and
// from broker backoff waits; Arm adds a wall-clock timer for code paths that
// never return to either.
type Watchdog struct {
	log       *slog.Logger
	clock     scheduler.Clock
	boot      uint32
	threshold uint32
	restarter Restarter
	journal   journal.Journal
	tripped   atomic.Bool
}

func NewWatchdog(log *slog.Logger, clock scheduler.Clock, threshold time.Duration, restarter Restarter, j journal.Journal) (*Watchdog, error) {
	ms := scheduler.Millis(threshold)
	if ms == 0 {
		return nil, fmt.Errorf("watchdog threshold must be positive, got %s", threshold)
	}
	if threshold > MaxWatchdogThreshold {
		return nil, fmt.Errorf("watchdog threshold %s exceeds %s", threshold, MaxWatchdogThreshold)
	}
	return &Watchdog{
		log:       log,
		clock:     clock,
		boot:      clock.Millis(),
		threshold: ms,
		restarter: restarter,
		journal:   j,
	}, nil
}

func (w *Watchdog) Uptime() time.Duration {
	return time.Duration(scheduler.Elapsed(w.clock.Millis(), w.boot)) * time.Millisecond
}

// Check triggers the restart when the threshold is reached and reports
// whether it did. A restarter that returns leaves the watchdog tripped.
func (w *Watchdog) Check(ctx context.Context) bool {
	if w.tripped.Load() {
		return false
	}

	uptime := scheduler.Elapsed(w.clock.Millis(), w.boot)
	if uptime < w.threshold {
		return false
	}

	return w.trip(ctx, fmt.Sprintf("uptime %dms reached watchdog threshold %dms", uptime, w.threshold))
}

// Arm starts a wall-clock timer that trips the watchdog after the threshold
// even if the agent loop is stuck inside a task. The returned func stops it.
func (w *Watchdog) Arm(ctx context.Context) (stop func() bool) {
	deadline := time.Duration(w.threshold) * time.Millisecond
	timer := time.AfterFunc(deadline, func() {
		w.trip(context.WithoutCancel(ctx), fmt.Sprintf("watchdog deadline %s passed outside the agent loop", deadline))
	})
	return timer.Stop
}

func (w *Watchdog) trip(ctx context.Context, reason string) bool {
	if !w.tripped.CompareAndSwap(false, true) {
		return false
	}

	w.log.Warn("watchdog restart", slog.String("reason", reason))
	if w.journal != nil {
		if err := w.journal.Record(ctx, journal.NewEvent(journal.KindWatchdog, 0, reason)); err != nil {
			w.log.Error("failed to journal watchdog restart", sl.Err(err))
		}
	}

	w.restarter.Restart(reason)
	return true
}
