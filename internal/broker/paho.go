package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
)

type PahoConfig struct {
	Host           string
	Port           int
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	QoS            byte
	Retain         bool
	InboundBuffer  int
}

type inboundMessage struct {
	topic   string
	payload []byte
}

// PahoTransport adapts the Eclipse Paho client to Transport. Paho's own
// reconnect logic is disabled; the Manager decides when to reconnect.
// Inbound messages are queued by paho's goroutines and handed to the
// handler from Poll.
type PahoTransport struct {
	log     *slog.Logger
	cfg     PahoConfig
	client  mqtt.Client
	inbound chan inboundMessage
	handler func(topic string, payload []byte)
	status  atomic.Int32
}

func NewPahoTransport(log *slog.Logger, cfg PahoConfig) *PahoTransport {
	if cfg.InboundBuffer <= 0 {
		cfg.InboundBuffer = 64
	}
	t := &PahoTransport{
		log:     log,
		cfg:     cfg,
		inbound: make(chan inboundMessage, cfg.InboundBuffer),
	}
	t.status.Store(StatusDisconnected)
	return t
}

func (t *PahoTransport) SetMessageHandler(fn func(topic string, payload []byte)) {
	t.handler = fn
}

func (t *PahoTransport) Connect(clientID, username, password string) bool {
	if t.client == nil {
		t.client = mqtt.NewClient(t.options(clientID, username, password))
	}

	token := t.client.Connect()
	if !token.WaitTimeout(connectWait(t.cfg.ConnectTimeout)) {
		// Abandon the half-open client so the next attempt does not hit
		// paho's "connection in progress" state.
		stale := t.client
		t.client = nil
		go stale.Disconnect(0)

		t.status.Store(StatusConnectionTimeout)
		return false
	}
	if err := token.Error(); err != nil {
		t.status.Store(int32(connectStatus(err)))
		t.log.Debug("mqtt connect error", sl.Err(err))
		return false
	}

	t.status.Store(StatusConnected)
	return true
}

// connectWait outlasts paho's own dial and CONNACK timeout, so a token that
// is still pending after it belongs to a stuck attempt.
func connectWait(timeout time.Duration) time.Duration {
	grace := timeout / 2
	if grace < time.Second {
		grace = time.Second
	}
	return timeout + grace
}

func (t *PahoTransport) Connected() bool {
	return t.client != nil && t.client.IsConnectionOpen()
}

func (t *PahoTransport) Publish(topic string, payload []byte) bool {
	if !t.Connected() {
		return false
	}

	token := t.client.Publish(topic, t.cfg.QoS, t.cfg.Retain, payload)
	if !token.WaitTimeout(t.cfg.PublishTimeout) {
		return false
	}
	return token.Error() == nil
}

func (t *PahoTransport) Subscribe(topic string) bool {
	if !t.Connected() {
		return false
	}

	token := t.client.Subscribe(topic, t.cfg.QoS, nil)
	if !token.WaitTimeout(t.cfg.PublishTimeout) {
		return false
	}
	return token.Error() == nil
}

// Poll dispatches the messages queued since the previous call. Keep-alives
// are sent by paho itself.
func (t *PahoTransport) Poll() {
	for {
		select {
		case msg := <-t.inbound:
			if t.handler != nil {
				t.handler(msg.topic, msg.payload)
			}
		default:
			return
		}
	}
}

func (t *PahoTransport) StatusCode() int {
	return int(t.status.Load())
}

func (t *PahoTransport) Close() {
	if t.client == nil {
		return
	}
	t.client.Disconnect(250)
	t.status.Store(StatusDisconnected)
}

func (t *PahoTransport) options(clientID, username, password string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", t.cfg.Host, t.cfg.Port)).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetKeepAlive(t.cfg.KeepAlive).
		SetConnectTimeout(t.cfg.ConnectTimeout)

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) {
		payload := make([]byte, len(m.Payload()))
		copy(payload, m.Payload())

		select {
		case t.inbound <- inboundMessage{topic: m.Topic(), payload: payload}:
		default:
			t.log.Warn("inbound queue full, dropping message", slog.String("topic", m.Topic()))
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		t.status.Store(StatusConnectionLost)
		t.log.Debug("mqtt connection lost", sl.Err(err))
	})

	return opts
}

func connectStatus(err error) int {
	switch {
	case errors.Is(err, packets.ErrorRefusedBadProtocolVersion):
		return StatusBadProtocol
	case errors.Is(err, packets.ErrorRefusedIDRejected):
		return StatusBadClientID
	case errors.Is(err, packets.ErrorRefusedServerUnavailable):
		return StatusUnavailable
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword):
		return StatusBadCredentials
	case errors.Is(err, packets.ErrorRefusedNotAuthorised):
		return StatusUnauthorized
	default:
		return StatusConnectFailed
	}
}
