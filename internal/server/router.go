package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns the configured chi.Router for the dashboard server.
//
// Route layout:
//
//	GET  /healthz       – liveness probe
//	GET  /metrics       – Prometheus exporter
//	POST /api/login     – credential exchange for a session token
//	POST /api/validate  – token validation (Bearer header)
//	GET  /ws            – WebSocket upgrade into the hub
//
// The WebSocket itself carries the one-time authenticate gate; none of these
// HTTP routes require a token.
func NewRouter(srv *Server, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	// Built-in chi middleware for observability and hygiene.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", srv.handleLogin)
		r.Post("/validate", srv.handleValidate)
	})

	r.Get("/ws", srv.handleWS)

	return r
}
