package session

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/constants"
	"github.com/kozaktomas/face-tracker/internal/database"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrNameTaken       = errors.New("session name already in use")
	ErrInvalidName     = errors.New("session name is required")
	ErrTooManySessions = errors.New("too many sessions")
)

// Manager owns the tracking sessions of a process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byName   map[string]string

	defaults config.TrackerConfig
	store    database.TrackEventWriter
}

// NewManager creates a session manager. store may be nil, in which case
// track events are only broadcast and not persisted.
func NewManager(defaults config.TrackerConfig, store database.TrackEventWriter) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byName:   make(map[string]string),
		defaults: defaults,
		store:    store,
	}
}

// Create starts a new session. A negative maxMissed selects the configured default.
func (m *Manager) Create(name string, maxMissed int) (*Session, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, ErrInvalidName
	}
	if maxMissed < 0 {
		maxMissed = m.defaults.MaxMissed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[key]; ok {
		return nil, ErrNameTaken
	}
	if len(m.sessions) >= constants.MaxSessions {
		return nil, ErrTooManySessions
	}

	t := tracker.New(maxMissed, tracker.WithIntegerCentroids(m.defaults.IntegerCentroids))
	s := newSession(uuid.NewString(), key, t, m.store)
	m.sessions[s.ID] = s
	m.byName[key] = s.ID
	return s, nil
}

// Get looks a session up by id or by name.
func (m *Manager) Get(idOrName string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookupLocked(idOrName)
}

// lookupLocked resolves an id or name. Callers must hold m.mu.
func (m *Manager) lookupLocked(idOrName string) (*Session, error) {
	if s, ok := m.sessions[idOrName]; ok {
		return s, nil
	}
	if id, ok := m.byName[NormalizeName(idOrName)]; ok {
		return m.sessions[id], nil
	}
	return nil, ErrNotFound
}

// List returns summaries of all sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}

// Delete removes a session, closes its listeners and, when the event store
// supports it, drops the session's stored events.
func (m *Manager) Delete(idOrName string) error {
	m.mu.Lock()
	s, err := m.lookupLocked(idOrName)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	delete(m.sessions, s.ID)
	delete(m.byName, s.Name)
	m.mu.Unlock()

	s.Close()

	if purger, ok := m.store.(database.TrackEventPurger); ok {
		if err := purger.DeleteSession(context.Background(), s.ID); err != nil {
			log.Printf("WARNING: failed to drop track events of session %s: %v", s.ID, err)
		}
	}
	return nil
}

// Close removes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.byName = make(map[string]string)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
