// Package mock provides in-memory implementations of database interfaces
// with error injection, for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-tracker/internal/database"
)

// MockTrackEventStore is an in-memory implementation of database.TrackEventStore
type MockTrackEventStore struct {
	mu     sync.RWMutex
	events map[string][]database.TrackEvent

	// Error injection
	SaveError  error
	ListError  error
	CountError error
}

// NewMockTrackEventStore creates a new in-memory track event store
func NewMockTrackEventStore() *MockTrackEventStore {
	return &MockTrackEventStore{
		events: make(map[string][]database.TrackEvent),
	}
}

// SaveEvents appends events per session
func (m *MockTrackEventStore) SaveEvents(ctx context.Context, events []database.TrackEvent) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		m.events[e.SessionID] = append(m.events[e.SessionID], e)
	}
	return nil
}

// ListEvents returns the most recent events of a session, newest first
func (m *MockTrackEventStore) ListEvents(ctx context.Context, sessionID string, limit int) ([]database.TrackEvent, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.events[sessionID]
	out := make([]database.TrackEvent, 0, min(limit, len(stored)))
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

// CountDistinctTracks returns how many distinct track ids were registered in a session
func (m *MockTrackEventStore) CountDistinctTracks(ctx context.Context, sessionID string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make(map[int]struct{})
	for _, e := range m.events[sessionID] {
		if e.Kind == database.EventRegistered {
			ids[e.TrackID] = struct{}{}
		}
	}
	return len(ids), nil
}

// Len returns the total number of stored events across sessions
func (m *MockTrackEventStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, events := range m.events {
		n += len(events)
	}
	return n
}

var _ database.TrackEventStore = (*MockTrackEventStore)(nil)
