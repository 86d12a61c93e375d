package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-tracker/internal/config"
)

// ConfigHandler exposes the effective tracker configuration.
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{config: cfg}
}

// ConfigResponse represents the configuration returned by the API.
// Connection strings are never included.
type ConfigResponse struct {
	Tracker         config.TrackerConfig  `json:"tracker"`
	Detector        config.DetectorConfig `json:"detector"`
	Frames          config.FramesConfig   `json:"frames"`
	EventsPersisted bool                  `json:"events_persisted"`
}

// Get returns the current configuration.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		Tracker:         h.config.Tracker,
		Detector:        h.config.Detector,
		Frames:          h.config.Frames,
		EventsPersisted: h.config.Database.URL != "",
	})
}
