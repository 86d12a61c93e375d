package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-tracker/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	sessionsHandler := handlers.NewSessionsHandler(s.sessions, s.history)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Event streams stay open for the lifetime of a session and are
		// registered outside the request timeout.
		r.Get("/sessions/{id}/events", sessionsHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			r.Get("/config", configHandler.Get)

			r.Get("/sessions", sessionsHandler.List)
			r.Post("/sessions", sessionsHandler.Create)
			r.Get("/sessions/{id}", sessionsHandler.Get)
			r.Delete("/sessions/{id}", sessionsHandler.Delete)
			r.Post("/sessions/{id}/frames", sessionsHandler.Frame)
			r.Get("/sessions/{id}/objects", sessionsHandler.Objects)
			r.Get("/sessions/{id}/history", sessionsHandler.History)
		})
	})
}
