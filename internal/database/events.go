package database

import (
	"context"
	"time"
)

// EventKind identifies a lifecycle transition of a tracked object.
type EventKind string

const (
	EventRegistered   EventKind = "registered"
	EventDeregistered EventKind = "deregistered"
)

// TrackEvent records one lifecycle transition of a tracked object.
type TrackEvent struct {
	SessionID string    `json:"session_id"`
	Frame     int       `json:"frame"`
	TrackID   int       `json:"track_id"`
	Kind      EventKind `json:"kind"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	At        time.Time `json:"at"`
}

// TrackEventWriter persists track events
type TrackEventWriter interface {
	// SaveEvents stores events in order; an empty slice is a no-op
	SaveEvents(ctx context.Context, events []TrackEvent) error
}

// TrackEventReader provides read-only access to stored track events
type TrackEventReader interface {
	// ListEvents returns the most recent events of a session, newest first
	ListEvents(ctx context.Context, sessionID string, limit int) ([]TrackEvent, error)
	// CountDistinctTracks returns how many distinct track ids were ever registered in a session
	CountDistinctTracks(ctx context.Context, sessionID string) (int, error)
}

// TrackEventStore combines read and write access
type TrackEventStore interface {
	TrackEventWriter
	TrackEventReader
}

// TrackEventPurger is implemented by stores that drop a session's events
// when the session is deleted
type TrackEventPurger interface {
	DeleteSession(ctx context.Context, sessionID string) error
}
