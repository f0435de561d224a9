package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the agent's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	published       *prometheus.CounterVec
	faults          *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	sensorErrors    *prometheus.CounterVec
	taskRuns        *prometheus.CounterVec
	connectAttempts prometheus.Counter
	connectFailures prometheus.Counter
	inbound         prometheus.Counter
	connected       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_readings_published_total",
			Help: "Valid readings handed to the broker.",
		}, []string{"topic"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_readings_faulted_total",
			Help: "Readings suppressed because the sensor returned a fault sentinel.",
		}, []string{"topic"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_readings_dropped_total",
			Help: "Valid readings dropped because the broker was unreachable.",
		}, []string{"topic"}),
		sensorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_sensor_request_errors_total",
			Help: "Failed conversion requests per sensor group.",
		}, []string{"group"}),
		taskRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_scheduler_task_runs_total",
			Help: "Scheduler task executions.",
		}, []string{"task"}),
		connectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_broker_connect_attempts_total",
			Help: "Broker connection attempts.",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_broker_connect_failures_total",
			Help: "Failed broker connection attempts.",
		}),
		inbound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_broker_inbound_messages_total",
			Help: "Messages received from the broker.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "telemetry_broker_connected",
			Help: "1 while the broker connection is up.",
		}),
	}

	reg.MustRegister(
		m.published,
		m.faults,
		m.dropped,
		m.sensorErrors,
		m.taskRuns,
		m.connectAttempts,
		m.connectFailures,
		m.inbound,
		m.connected,
	)

	return m
}

func (m *Metrics) Published(topic string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(topic).Inc()
}

func (m *Metrics) Faulted(topic string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(topic).Inc()
}

func (m *Metrics) Dropped(topic string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(topic).Inc()
}

func (m *Metrics) SensorError(group string) {
	if m == nil {
		return
	}
	m.sensorErrors.WithLabelValues(group).Inc()
}

func (m *Metrics) TaskRun(task string) {
	if m == nil {
		return
	}
	m.taskRuns.WithLabelValues(task).Inc()
}

func (m *Metrics) ConnectAttempt(ok bool) {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
	if !ok {
		m.connectFailures.Inc()
	}
}

func (m *Metrics) Inbound() {
	if m == nil {
		return
	}
	m.inbound.Inc()
}

func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}
