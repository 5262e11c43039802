package model

import "time"

// SignalEvent represents one attempt to write a signal byte to the microcontroller.
type SignalEvent struct {
	ID        int64     `json:"id"`
	Signal    string    `json:"signal"`
	Sent      bool      `json:"sent"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
