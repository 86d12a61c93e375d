// Package session runs independent tracking sessions, one per video stream.
// Each session owns its tracker and serialises frame updates, so several
// cameras can be tracked side by side from concurrent HTTP requests.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-tracker/internal/database"
	"github.com/kozaktomas/face-tracker/internal/geometry"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

// Session tracks the objects of a single stream.
type Session struct {
	EventBroadcaster

	ID        string
	Name      string
	CreatedAt time.Time

	mu      sync.Mutex
	tracker *tracker.Tracker
	frames  int
	store   database.TrackEventWriter
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MaxMissed int       `json:"max_missed"`
	Frames    int       `json:"frames"`
	Active    int       `json:"active"`
	TotalSeen int       `json:"total_seen"`
	CreatedAt time.Time `json:"created_at"`
}

// FrameResult is the outcome of processing one frame.
type FrameResult struct {
	Frame        int              `json:"frame"`
	Empty        bool             `json:"empty"`
	Objects      []tracker.Object `json:"objects"`
	Registered   []int            `json:"registered,omitempty"`
	Deregistered []int            `json:"deregistered,omitempty"`
	TotalSeen    int              `json:"total_seen"`
}

func newSession(id, name string, t *tracker.Tracker, store database.TrackEventWriter) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		tracker:   t,
		store:     store,
	}
}

// Process feeds one frame of detections to the session's tracker. Calls are
// serialised; the result reflects this frame only. Events are broadcast and
// stored before the next frame is taken, so listeners and the event store
// see frames in order.
func (s *Session) Process(ctx context.Context, boxes []geometry.BBox) FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.frames
	s.frames++

	before := s.tracker.Snapshot()
	after := s.tracker.Update(boxes)
	changes := s.tracker.LastChanges()

	result := FrameResult{
		Frame:        frame,
		Empty:        len(boxes) == 0,
		Objects:      s.tracker.Objects(),
		Registered:   changes.Registered,
		Deregistered: changes.Deregistered,
		TotalSeen:    s.tracker.NextID() - 1,
	}

	events := s.trackEvents(frame, changes, before, after)
	s.publish(result, events)

	if s.store != nil && len(events) > 0 {
		if err := s.store.SaveEvents(ctx, events); err != nil {
			log.Printf("WARNING: failed to store track events for session %s: %v", s.ID, err)
		}
	}

	return result
}

func (s *Session) trackEvents(frame int, changes tracker.Changes, before, after map[int]geometry.Point) []database.TrackEvent {
	now := time.Now()
	events := make([]database.TrackEvent, 0, len(changes.Registered)+len(changes.Deregistered))
	for _, id := range changes.Deregistered {
		p := before[id]
		events = append(events, database.TrackEvent{
			SessionID: s.ID, Frame: frame, TrackID: id,
			Kind: database.EventDeregistered, X: p.X, Y: p.Y, At: now,
		})
	}
	for _, id := range changes.Registered {
		p := after[id]
		events = append(events, database.TrackEvent{
			SessionID: s.ID, Frame: frame, TrackID: id,
			Kind: database.EventRegistered, X: p.X, Y: p.Y, At: now,
		})
	}
	return events
}

func (s *Session) publish(result FrameResult, events []database.TrackEvent) {
	for _, e := range events {
		s.SendEvent(Event{Type: string(e.Kind), Data: e})
	}
	s.SendEvent(Event{Type: EventFrame, Data: result})
}

// Objects returns the currently tracked objects.
func (s *Session) Objects() []tracker.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Objects()
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.ID,
		Name:      s.Name,
		MaxMissed: s.tracker.MaxMissed(),
		Frames:    s.frames,
		Active:    s.tracker.Len(),
		TotalSeen: s.tracker.NextID() - 1,
		CreatedAt: s.CreatedAt,
	}
}
