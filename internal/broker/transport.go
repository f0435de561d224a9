package broker

// Status codes reported by a Transport. Negative values are client-side
// conditions, positive values are CONNACK refusal codes.
const (
	StatusConnectionTimeout = -4
	StatusConnectionLost    = -3
	StatusConnectFailed     = -2
	StatusDisconnected      = -1
	StatusConnected         = 0
	StatusBadProtocol       = 1
	StatusBadClientID       = 2
	StatusUnavailable       = 3
	StatusBadCredentials    = 4
	StatusUnauthorized      = 5
)

// Transport is the message-broker client boundary. Implementations must not
// invoke the message handler outside Poll.
type Transport interface {
	Connect(clientID, username, password string) bool
	Connected() bool
	Publish(topic string, payload []byte) bool
	Subscribe(topic string) bool
	Poll()
	StatusCode() int
	SetMessageHandler(fn func(topic string, payload []byte))
	Close()
}

func StatusText(code int) string {
	switch code {
	case StatusConnectionTimeout:
		return "connection timeout"
	case StatusConnectionLost:
		return "connection lost"
	case StatusConnectFailed:
		return "connect failed"
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusBadProtocol:
		return "bad protocol"
	case StatusBadClientID:
		return "bad client id"
	case StatusUnavailable:
		return "server unavailable"
	case StatusBadCredentials:
		return "bad credentials"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}
