package realtime

import "encoding/json"

// Event names the realtime events exchanged with the backend.
type Event string

const (
	// EventConnect fires locally once the handshake completes.
	EventConnect Event = "connect"
	// EventConnected is the server's handshake acknowledgement. It carries
	// a ConnectedInfo payload.
	EventConnected Event = "connected"
	// EventConnectError fires when the handshake is rejected or the dial fails.
	EventConnectError Event = "connect_error"
	// EventDisconnect fires when the transport drops, explicitly or not.
	EventDisconnect Event = "disconnect"
	// EventNotification carries a single notification object.
	EventNotification Event = "notification"
)

// frame is the wire format of every realtime message.
type frame struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// authPayload is the connection-time credential. It is the first frame the
// client writes; the server validates it before any event traffic.
type authPayload struct {
	Token string `json:"token"`
}

// Identity is the authenticated user as reported by the server.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ConnectedInfo is the payload of the connected event.
type ConnectedInfo struct {
	Message   string   `json:"message"`
	User      Identity `json:"user"`
	Timestamp string   `json:"timestamp"`
}

// Handler consumes the raw payload of one event occurrence.
type Handler func(data json.RawMessage)
