// Package memory provides a bounded in-memory track event store, used by the
// server when no database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-tracker/internal/database"
)

// TrackEventStore keeps the most recent events of each session in a fixed
// size ring. Older events are evicted once a session's ring is full.
type TrackEventStore struct {
	mu       sync.RWMutex
	capacity int
	sessions map[string]*sessionEvents
}

type sessionEvents struct {
	ring []database.TrackEvent
	next int
	full bool

	// registered counts every registration ever seen, evicted ones included.
	// Track ids are never reused within a session.
	registered int
}

// NewTrackEventStore creates a store holding at most capacity events per session.
func NewTrackEventStore(capacity int) *TrackEventStore {
	return &TrackEventStore{
		capacity: max(capacity, 1),
		sessions: make(map[string]*sessionEvents),
	}
}

// SaveEvents appends events to their session's ring
func (s *TrackEventStore) SaveEvents(ctx context.Context, events []database.TrackEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		se, ok := s.sessions[e.SessionID]
		if !ok {
			se = &sessionEvents{ring: make([]database.TrackEvent, 0, min(s.capacity, 64))}
			s.sessions[e.SessionID] = se
		}
		se.append(e, s.capacity)
	}
	return nil
}

func (se *sessionEvents) append(e database.TrackEvent, capacity int) {
	if e.Kind == database.EventRegistered {
		se.registered++
	}
	if !se.full {
		se.ring = append(se.ring, e)
		if len(se.ring) == capacity {
			se.full = true
		}
		return
	}
	se.ring[se.next] = e
	se.next = (se.next + 1) % capacity
}

// at returns the i-th newest event.
func (se *sessionEvents) at(i int) database.TrackEvent {
	if !se.full {
		return se.ring[len(se.ring)-1-i]
	}
	n := len(se.ring)
	return se.ring[(se.next-1-i+2*n)%n]
}

// ListEvents returns the most recent events of a session, newest first
func (s *TrackEventStore) ListEvents(ctx context.Context, sessionID string, limit int) ([]database.TrackEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	se, ok := s.sessions[sessionID]
	if !ok {
		return []database.TrackEvent{}, nil
	}
	n := min(limit, len(se.ring))
	out := make([]database.TrackEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, se.at(i))
	}
	return out, nil
}

// CountDistinctTracks returns how many distinct track ids were registered in a session
func (s *TrackEventStore) CountDistinctTracks(ctx context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if se, ok := s.sessions[sessionID]; ok {
		return se.registered, nil
	}
	return 0, nil
}

// DeleteSession drops every stored event of a session
func (s *TrackEventStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the total number of stored events across sessions
func (s *TrackEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, se := range s.sessions {
		n += len(se.ring)
	}
	return n
}

var (
	_ database.TrackEventStore  = (*TrackEventStore)(nil)
	_ database.TrackEventPurger = (*TrackEventStore)(nil)
)
