package domain

import "time"

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventSessionCreated EventKind = "created"
	EventSessionStarted EventKind = "started"
	EventSessionEnded   EventKind = "ended"
	EventSessionEvicted EventKind = "evicted"
)

// SessionEvent is published on lifecycle transitions.
type SessionEvent struct {
	Kind       EventKind `json:"kind"`
	Code       int       `json:"code"`
	Level      int       `json:"level"`
	Players    int       `json:"players"`
	OccurredAt time.Time `json:"occurredAt"`
}
