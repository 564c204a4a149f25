package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds the database ping made by GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
//
// Routes are registered flat rather than with nested Route blocks so the
// token routes under /devices stay public while /devices/{id} is admin-only.
// chi matches the static activate/deactivate/status segments before {id}.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	// Public routes
	r.Get("/health", s.handleHealth)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	// Device-facing routes: the device token is the credential.
	r.Post("/devices/activate/{token}", s.handleActivateDevice)
	r.Post("/devices/deactivate/{token}", s.handleDeactivateDevice)
	r.Get("/devices/status/{token}", s.handleDeviceStatus)
	r.Post("/readings", s.handleIngestReading)
	r.Post("/alerts", s.handleIngestAlert)

	// WebSocket (ticket auth is checked inside the handler)
	r.Get(s.wsPath(), s.handleFeed)

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/auth/user", s.handleUser)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/ws-ticket", s.handleWSTicket)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)

			r.Get("/devices", s.handleListDevices)
			r.Post("/devices", s.handleCreateDevice)
			r.Get("/devices/{id}", s.handleGetDevice)
			r.Put("/devices/{id}", s.handleUpdateDevice)
			r.Delete("/devices/{id}", s.handleDeleteDevice)

			r.Get("/readings", s.handleListReadings)
			r.Get("/readings/{id}", s.handleGetReading)
			r.Put("/readings/{id}", s.handleUpdateReading)
			r.Delete("/readings/{id}", s.handleDeleteReading)

			r.Get("/alerts", s.handleListAlerts)
			r.Get("/alerts/{id}", s.handleGetAlert)
			r.Put("/alerts/{id}", s.handleUpdateAlert)
			r.Delete("/alerts/{id}", s.handleDeleteAlert)

			r.Route("/stats", func(r chi.Router) {
				r.Get("/overview", s.handleStatsOverview)
				r.Get("/alerts-by-type", s.handleAlertsByType)
				r.Get("/readings-per-day", s.handleReadingsPerDay)
				r.Get("/readings-per-month", s.handleReadingsPerMonth)
				r.Get("/top-devices", s.handleTopDevices)
			})

			r.Get("/audit", s.handleListAudit)
			r.Get("/metrics", s.handleMetrics)
		})
	})

	return r
}

// wsPath returns the configured WebSocket path, defaulting to /ws.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports whether the service can reach its database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "version": s.version}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			status["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}

	writeJSON(w, http.StatusOK, status)
}
