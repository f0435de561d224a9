// Package broker keeps the MQTT connection alive and pumps inbound traffic.
//
// The Manager is driven from the agent's scheduler thread. Reconnecting is
// the one place the agent blocks: EnsureConnectedAndPump retries forever with
// a fixed backoff until the broker accepts the connection.
package broker

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/speedwagon-io/trafo-telemetry/internal/journal"
	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/metrics"
)

type Credentials struct {
	ClientID string
	Username string
	Password string
}

type Manager struct {
	log           *slog.Logger
	transport     Transport
	creds         Credentials
	subscriptions []string
	backoff       *Backoff
	metrics       *metrics.Metrics
	journal       journal.Journal

	// Code of the last journaled connect failure in the current outage.
	failing     bool
	lastFailure int

	// Snapshots for readers outside the agent thread.
	connected atomic.Bool
	status    atomic.Int32
	attempts  atomic.Uint64
}

func NewManager(
	log *slog.Logger,
	transport Transport,
	creds Credentials,
	subscriptions []string,
	backoff *Backoff,
	m *metrics.Metrics,
	j journal.Journal,
) *Manager {
	mgr := &Manager{
		log:           log,
		transport:     transport,
		creds:         creds,
		subscriptions: subscriptions,
		backoff:       backoff,
		metrics:       m,
		journal:       j,
	}
	mgr.status.Store(StatusDisconnected)
	transport.SetMessageHandler(mgr.OnMessage)
	return mgr
}

// EnsureConnectedAndPump reconnects if needed, then runs one round of
// inbound protocol work. It only returns without pumping when ctx is
// cancelled during the backoff wait.
func (m *Manager) EnsureConnectedAndPump(ctx context.Context) {
	if !m.transport.Connected() {
		if m.connected.Swap(false) {
			code := m.transport.StatusCode()
			m.status.Store(int32(code))
			m.metrics.SetConnected(false)
			m.log.Warn("broker connection lost", slog.Int("rc", code))
			m.record(ctx, journal.KindConnectionLost, code, "")
		}
		if !m.reconnect(ctx) {
			return
		}
	}

	if !m.connected.Swap(true) {
		m.status.Store(StatusConnected)
		m.metrics.SetConnected(true)
	}

	m.transport.Poll()
}

func (m *Manager) reconnect(ctx context.Context) bool {
	for !m.transport.Connected() {
		m.attempts.Add(1)
		m.log.Info("connecting to broker", slog.String("client_id", m.creds.ClientID))

		if m.transport.Connect(m.creds.ClientID, m.creds.Username, m.creds.Password) {
			break
		}

		code := m.transport.StatusCode()
		m.status.Store(int32(code))
		m.metrics.ConnectAttempt(false)
		m.log.Warn("broker connect failed, retrying",
			slog.Int("rc", code),
			slog.String("reason", StatusText(code)),
			slog.Duration("backoff", m.backoff.Delay),
		)
		if !m.failing || code != m.lastFailure {
			m.record(ctx, journal.KindConnectFailed, code, StatusText(code))
		}
		m.failing, m.lastFailure = true, code

		if !m.backoff.Wait(ctx) {
			return false
		}
	}

	m.failing = false
	m.metrics.ConnectAttempt(true)
	m.metrics.SetConnected(true)
	m.status.Store(StatusConnected)
	m.connected.Store(true)
	m.log.Info("connected to broker")
	m.record(ctx, journal.KindConnected, StatusConnected, "")

	for _, topic := range m.subscriptions {
		if !m.transport.Subscribe(topic) {
			m.log.Warn("subscribe failed", slog.String("topic", topic))
		}
	}

	return true
}

// Publish sends payload if the broker is connected. While disconnected the
// payload is dropped; nothing is queued or retried.
func (m *Manager) Publish(topic string, payload []byte) bool {
	m.log.Debug("publish",
		slog.String("topic", topic),
		slog.String("payload", string(payload)),
	)

	if !m.transport.Connected() {
		m.metrics.Dropped(topic)
		return false
	}

	if !m.transport.Publish(topic, payload) {
		m.metrics.Dropped(topic)
		return false
	}

	m.metrics.Published(topic)
	return true
}

func (m *Manager) OnMessage(topic string, payload []byte) {
	m.metrics.Inbound()
	m.log.Info("message received",
		slog.String("topic", topic),
		slog.String("payload", string(payload)),
	)
}

// OnBackoff registers fn to run after every reconnect backoff wait. It is
// the only hook that runs while EnsureConnectedAndPump is retrying.
func (m *Manager) OnBackoff(fn func(ctx context.Context)) {
	m.backoff.AfterWait = fn
}

// Connected reports the state observed on the last connection check.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

func (m *Manager) Status() int {
	return int(m.status.Load())
}

func (m *Manager) Attempts() uint64 {
	return m.attempts.Load()
}

func (m *Manager) Close() {
	m.transport.Close()
	m.connected.Store(false)
	m.metrics.SetConnected(false)
}

func (m *Manager) record(ctx context.Context, kind journal.Kind, code int, detail string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(ctx, journal.NewEvent(kind, code, detail)); err != nil {
		m.log.Error("failed to journal event", slog.String("kind", string(kind)), sl.Err(err))
	}
}
