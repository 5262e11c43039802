package dto

import (
	"encoding/json"
	"time"
)

// Event kinds pushed to status viewers.
const (
	EventPresence = "presence"
	EventSignal   = "signal"
	EventCapture  = "capture"
	EventUpload   = "upload"
)

// PresenceEvent is the payload broadcast over the status websocket.
type PresenceEvent struct {
	Kind      string            `json:"kind"`
	Present   bool              `json:"present"`
	Faces     []DetectionResult `json:"faces,omitempty"`
	Signal    string            `json:"signal,omitempty"`
	Sent      bool              `json:"sent,omitempty"`
	Filename  string            `json:"filename,omitempty"`
	RemoteID  string            `json:"remote_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// MarshalJSON formats the timestamp with millisecond precision.
func (e PresenceEvent) MarshalJSON() ([]byte, error) {
	type Alias PresenceEvent
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		Alias
	}{
		Timestamp: e.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Alias:     (Alias)(e),
	})
}
