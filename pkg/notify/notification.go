package notify

import (
	"encoding/json"
	"time"

	"github.com/manas-swain-001/cms-client/internal/rand"
)

// Type classifies a notification.
type Type string

const (
	TypeAttendance Type = "attendance"
	TypeTask       Type = "task"
	TypeSystem     Type = "system"
	TypeOther      Type = "other"
)

// Notification is one entry of the synchronized list. IDs are unique within
// the list; ordering is most-recent-first.
type Notification struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      Type           `json:"type"`
	Timestamp string         `json:"timestamp"`
	Read      bool           `json:"read"`
	Data      map[string]any `json:"data,omitempty"`
}

// fromPayload validates and normalizes an incoming realtime payload.
// Anything that is not a JSON object is rejected. Missing fields get
// defaults: a generated time+random id, the current time, unread.
func fromPayload(raw json.RawMessage) (Notification, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Notification{}, false
	}

	var n Notification
	// re-decode through the struct for the well-known fields
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, false
	}

	if n.ID == "" {
		n.ID = rand.ID()
	}
	if n.Timestamp == "" {
		n.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	switch n.Type {
	case TypeAttendance, TypeTask, TypeSystem, TypeOther:
	default:
		n.Type = TypeOther
	}
	return n, true
}
