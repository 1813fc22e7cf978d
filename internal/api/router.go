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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Bulb endpoints
		r.Route("/bulbs", func(r chi.Router) {
			r.Get("/", s.handleListBulbs)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetBulb)
				r.Post("/power", s.handleSetPower)
				r.Post("/color", s.handleSetColor)
				r.Post("/hsv", s.handleSetHSV)
				r.Post("/warmwhite", s.handleSetWarmWhite)
				r.Post("/refresh", s.handleRefreshBulb)
				r.Get("/history", s.handleBulbHistory)
			})
		})

		// Group endpoints. The collection-level commands take a targets
		// list that may mix bulb and group names; the named routes
		// address one configured group.
		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.handleListGroups)
			r.Post("/power", s.handleTargetsPower)
			r.Post("/color", s.handleTargetsColor)
			r.Post("/hsv", s.handleTargetsHSV)
			r.Post("/warmwhite", s.handleTargetsWarmWhite)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetGroup)
				r.Post("/power", s.handleGroupPower)
				r.Post("/color", s.handleGroupColor)
				r.Post("/hsv", s.handleGroupHSV)
				r.Post("/warmwhite", s.handleGroupWarmWhite)
			})
		})

		// Force a status refresh of every known bulb
		r.Post("/refresh", s.handleRefreshAll)

		// WebSocket state event stream
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
