package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-tracker/internal/constants"
	"github.com/kozaktomas/face-tracker/internal/database"
	"github.com/kozaktomas/face-tracker/internal/geometry"
	"github.com/kozaktomas/face-tracker/internal/session"
	"github.com/kozaktomas/face-tracker/internal/tracker"
)

// SessionsHandler handles tracking session endpoints.
type SessionsHandler struct {
	manager *session.Manager
	history database.TrackEventReader
}

// NewSessionsHandler creates a new sessions handler. history may be nil when
// track events are not stored.
func NewSessionsHandler(manager *session.Manager, history database.TrackEventReader) *SessionsHandler {
	return &SessionsHandler{
		manager: manager,
		history: history,
	}
}

// CreateSessionRequest represents a create session request.
type CreateSessionRequest struct {
	Name      string `json:"name"`
	MaxMissed *int   `json:"max_missed,omitempty"`
}

// FrameRequest carries the detections of one frame as [left, top, right, bottom] boxes.
type FrameRequest struct {
	Boxes [][]float64 `json:"boxes"`
}

// ObjectsResponse lists the objects a session currently tracks.
type ObjectsResponse struct {
	SessionID string           `json:"session_id"`
	Objects   []tracker.Object `json:"objects"`
}

// HistoryResponse lists stored track events of a session, newest first.
type HistoryResponse struct {
	SessionID      string                `json:"session_id"`
	Events         []database.TrackEvent `json:"events"`
	DistinctTracks int                   `json:"distinct_tracks"`
}

// lookupSession resolves the {id} URL parameter. On failure it writes the
// error response and returns false.
func (h *SessionsHandler) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing session ID")
		return nil, false
	}

	s, err := h.manager.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// Create starts a new tracking session.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	maxMissed := -1
	if req.MaxMissed != nil {
		if *req.MaxMissed < 0 {
			respondError(w, http.StatusBadRequest, "max_missed must not be negative")
			return
		}
		maxMissed = *req.MaxMissed
	}

	s, err := h.manager.Create(req.Name, maxMissed)
	switch {
	case errors.Is(err, session.ErrInvalidName):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, session.ErrNameTaken):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, session.ErrTooManySessions):
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	log.Printf("Created session %s (%s)", s.ID, sanitizeForLog(s.Name))
	respondJSON(w, http.StatusCreated, s.Info())
}

// List returns all sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.List())
}

// Get returns a single session.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Info())
}

// Delete removes a session and disconnects its event listeners.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	log.Printf("Deleted session %s", sanitizeForLog(id))
	w.WriteHeader(http.StatusNoContent)
}

// Frame feeds one frame of detections to the session's tracker.
func (h *SessionsHandler) Frame(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxFrameBodyBytes)
	var req FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	boxes, err := parseBoxes(req.Boxes)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, s.Process(r.Context(), boxes))
}

func parseBoxes(raw [][]float64) ([]geometry.BBox, error) {
	if len(raw) > constants.MaxBoxesPerFrame {
		return nil, fmt.Errorf("too many boxes: %d (max %d)", len(raw), constants.MaxBoxesPerFrame)
	}
	boxes := make([]geometry.BBox, 0, len(raw))
	for i, c := range raw {
		b, ok := geometry.FromCorners(c)
		if !ok {
			return nil, fmt.Errorf("box %d: expected 4 coordinates, got %d", i, len(c))
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// Objects returns the objects currently tracked by a session.
func (h *SessionsHandler) Objects(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ObjectsResponse{
		SessionID: s.ID,
		Objects:   s.Objects(),
	})
}

// History returns the stored registration and deregistration events of a session.
func (h *SessionsHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "track history is not available")
		return
	}

	s, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	limit := constants.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, constants.MaxHistoryLimit)
	}

	events, err := h.history.ListEvents(r.Context(), s.ID, limit)
	if err != nil {
		log.Printf("Failed to list track events for session %s: %v", s.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to load track history")
		return
	}
	distinct, err := h.history.CountDistinctTracks(r.Context(), s.ID)
	if err != nil {
		log.Printf("Failed to count tracks for session %s: %v", s.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to load track history")
		return
	}
	if events == nil {
		events = []database.TrackEvent{}
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		SessionID:      s.ID,
		Events:         events,
		DistinctTracks: distinct,
	})
}
