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
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Device provisioning happens before the device holds any
		// credential, so registration is open.
		r.Post("/device/register", s.handleRegisterDevice)

		// Device-authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(s.deviceAuthMiddleware)

			r.Post("/device/event", s.handleIngestEvent)
			r.Post("/device/heartbeat", s.handleHeartbeat)
			r.Get("/device/status", s.handleDeviceStatus)
		})

		// Caregiver-authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(s.caregiverAuthMiddleware)

			r.Post("/device/pair", s.handlePairDevice)
			r.Post("/device/unpair", s.handleUnpairDevice)
			r.Post("/device/pair-code", s.handleIssuePairCode)
			r.Get("/assistidos/{id}/quedas", s.handleListQuedas)
		})
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
