// Package agent owns the telemetry loop.
//
// An Agent is a single-threaded cooperative scheduler context: broker
// maintenance, inbound dispatch and sensor sampling all run on the goroutine
// that calls Run. No task may block indefinitely; the broker reconnect wait
// is the only long pause, and the watchdog is checked between its attempts.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/speedwagon-io/trafo-telemetry/internal/classifier"
	"github.com/speedwagon-io/trafo-telemetry/internal/journal"
	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/metrics"
	"github.com/speedwagon-io/trafo-telemetry/internal/model"
	"github.com/speedwagon-io/trafo-telemetry/internal/scheduler"
	"github.com/speedwagon-io/trafo-telemetry/internal/sensor"
)

const connectionTask = "broker"

// Connection is the broker side of the agent.
type Connection interface {
	EnsureConnectedAndPump(ctx context.Context)
	Publish(topic string, payload []byte) bool
}

// backoffNotifier is implemented by connections that block while retrying
// and can run a callback between attempts.
type backoffNotifier interface {
	OnBackoff(fn func(ctx context.Context))
}

// Group is a set of channels read together by one Reader on one interval.
type Group struct {
	Name       string
	Interval   time.Duration
	Reader     sensor.Reader
	Classifier *classifier.Classifier
	Channels   []model.Channel
}

type Options struct {
	ConnectionInterval time.Duration
	IdleSleep          time.Duration
	Watchdog           *Watchdog
	Metrics            *metrics.Metrics
	Journal            journal.Journal
	JournalMaxAge      time.Duration
	CleanupInterval    time.Duration
}

type Agent struct {
	log      *slog.Logger
	sched    *scheduler.Scheduler
	conn     Connection
	groups   []*Group
	watchdog *Watchdog
	metrics  *metrics.Metrics
	journal  journal.Journal
	maxAge   time.Duration
	idle     time.Duration
}

func New(log *slog.Logger, clock scheduler.Clock, conn Connection, groups []*Group, opts Options) (*Agent, error) {
	a := &Agent{
		log:      log,
		sched:    scheduler.New(clock),
		conn:     conn,
		groups:   groups,
		watchdog: opts.Watchdog,
		metrics:  opts.Metrics,
		journal:  opts.Journal,
		maxAge:   opts.JournalMaxAge,
		idle:     opts.IdleSleep,
	}

	if a.watchdog != nil {
		if n, ok := conn.(backoffNotifier); ok {
			n.OnBackoff(func(ctx context.Context) {
				a.watchdog.Check(ctx)
			})
		}
	}

	if _, err := a.sched.Add(connectionTask, opts.ConnectionInterval, a.maintainConnection); err != nil {
		return nil, fmt.Errorf("failed to schedule broker task: %w", err)
	}

	seen := make(map[string]string)
	for _, g := range groups {
		for _, ch := range g.Channels {
			if owner, dup := seen[ch.Topic]; dup {
				return nil, fmt.Errorf("channel %s: topic %q already sampled by group %s", ch, ch.Topic, owner)
			}
			seen[ch.Topic] = g.Name
		}

		group := g
		if _, err := a.sched.Add(group.Name, group.Interval, func(ctx context.Context) {
			a.sample(ctx, group)
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule group %s: %w", group.Name, err)
		}
	}

	if a.journal != nil && opts.CleanupInterval > 0 && a.maxAge > 0 {
		if _, err := a.sched.Add("journal-cleanup", opts.CleanupInterval, a.cleanupJournal); err != nil {
			return nil, fmt.Errorf("failed to schedule journal cleanup: %w", err)
		}
	}

	return a, nil
}

// Run loops until ctx is cancelled. Each pass checks the watchdog and then
// every schedule entry once.
func (a *Agent) Run(ctx context.Context) {
	a.log.Info("starting agent loop",
		slog.Int("groups", len(a.groups)),
		slog.Int("entries", len(a.sched.Entries())),
	)

	for {
		if ctx.Err() != nil {
			a.log.Info("context cancelled, stopping agent loop")
			return
		}

		a.Step(ctx)

		if a.idle > 0 {
			time.Sleep(a.idle)
		}
	}
}

// Step performs a single scheduler pass and returns how many tasks fired.
func (a *Agent) Step(ctx context.Context) int {
	if a.watchdog != nil {
		a.watchdog.Check(ctx)
	}
	return a.sched.RunPending(ctx)
}

func (a *Agent) Entries() []*scheduler.Entry {
	return a.sched.Entries()
}

func (a *Agent) Close() {
	for _, g := range a.groups {
		if err := g.Reader.Close(); err != nil {
			a.log.Error("failed to close reader", slog.String("group", g.Name), sl.Err(err))
		}
	}
}

func (a *Agent) maintainConnection(ctx context.Context) {
	a.metrics.TaskRun(connectionTask)
	a.conn.EnsureConnectedAndPump(ctx)
}

func (a *Agent) sample(ctx context.Context, g *Group) {
	a.metrics.TaskRun(g.Name)

	if err := g.Reader.RequestAll(); err != nil {
		a.metrics.SensorError(g.Name)
		a.log.Warn("conversion request failed",
			slog.String("group", g.Name),
			sl.Err(err),
		)
	}

	for _, ch := range g.Channels {
		value := g.Reader.Read(ch)
		payload, ok := g.Classifier.Payload(value)

		a.log.Debug("reading",
			slog.String("channel", ch.String()),
			slog.Float64("value", value),
			slog.Bool("valid", ok),
		)

		if !ok {
			a.metrics.Faulted(ch.Topic)
			continue
		}

		a.conn.Publish(ch.Topic, payload)
	}
}

func (a *Agent) cleanupJournal(ctx context.Context) {
	a.metrics.TaskRun("journal-cleanup")
	if err := a.journal.Cleanup(ctx, a.maxAge); err != nil {
		a.log.Error("failed to cleanup journal", sl.Err(err))
	}
}
