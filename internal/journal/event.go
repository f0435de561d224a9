package journal

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBoot           Kind = "boot"
	KindConnected      Kind = "connected"
	KindConnectFailed  Kind = "connect_failed"
	KindConnectionLost Kind = "connection_lost"
	KindWatchdog       Kind = "watchdog_restart"
)

// Event is a lifecycle record. Telemetry readings are never journaled.
type Event struct {
	ID        string    `json:"id"`
	BootID    string    `json:"boot_id"`
	Kind      Kind      `json:"kind"`
	Code      int       `json:"code"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(kind Kind, code int, detail string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Code:      code,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}
