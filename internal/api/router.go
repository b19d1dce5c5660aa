package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/rows", s.handleListRows)
			r.Get("/payload", s.handleGetPayload)
			r.Post("/save", s.handleSave)
			r.Post("/scans", s.handlePostScan)
			r.Post("/devices", s.handleAddDevice)
			r.Post("/rows/{deviceID}/toggle", s.handleToggle)

			r.Get("/prompts", s.handleListPrompts)
			r.Post("/prompts/{id}/answer", s.handleAnswerPrompt)

			r.Get("/events", s.handleListEvents)
		})

		// WebSocket: row updates out, scans in
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
