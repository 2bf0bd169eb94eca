package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/backoffice-core/internal/auth"
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

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// No session required
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		// Any authenticated role
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/user/profile", s.handleProfile)
			r.Post("/change-password", s.handleChangePassword)
		})

		// Root only
		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleRoot))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Put("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
				})
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/sweep", s.handleSweepSessions)
				r.Get("/stats", s.handleSessionStats)
			})
		})
	})

	return r
}

// handleHealth reports service status. It returns 503 when the user
// store cannot be reached and "degraded" when a telemetry sink is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.database != nil {
		if err := s.database.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"status":  "unavailable",
				"version": s.version,
				"code":    ErrCodeUnavailable,
			})
			return
		}
	}

	body := map[string]any{
		"success": true,
		"status":  "ok",
		"version": s.version,
	}
	if len(s.telemetry) > 0 {
		components := make(map[string]string, len(s.telemetry))
		for name, hc := range s.telemetry {
			if err := hc.HealthCheck(r.Context()); err != nil {
				s.logger.Warn("telemetry health check failed", "sink", name, "error", err)
				components[name] = "unavailable"
				body["status"] = "degraded"
				continue
			}
			components[name] = "ok"
		}
		body["telemetry"] = components
	}

	writeJSON(w, http.StatusOK, body)
}
