// Package server provides the HTTP surface of the dashboard: the login and
// token-validation endpoints, the liveness probe, the Prometheus exporter,
// and the WebSocket upgrade that hands connections to the hub.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/firewatch/dashboard/internal/auth"
	"github.com/firewatch/dashboard/internal/hub"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	log  *slog.Logger
	auth *auth.Service
	hub  *hub.Hub
}

// NewServer creates a Server.
func NewServer(log *slog.Logger, authSvc *auth.Service, h *hub.Hub) *Server {
	return &Server{log: log, auth: authSvc, hub: h}
}

// loginRequest is the POST /api/login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the POST /api/login reply.
type loginResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token,omitempty"`
	User    *auth.Identity `json:"user,omitempty"`
	Message string         `json:"message,omitempty"`
}

// validateResponse is the POST /api/validate reply.
type validateResponse struct {
	Valid bool           `json:"valid"`
	User  *auth.Identity `json:"user,omitempty"`
}

// handleHealthz responds to GET /healthz. No authentication: load balancers
// use it to verify liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin responds to POST /api/login. Valid credentials yield a signed
// session token; anything else yields HTTP 401 with no detail about which
// part of the credentials failed.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, loginResponse{Success: false, Message: "malformed request body"})
		return
	}

	id, ok := s.auth.Authenticate(req.Username, req.Password)
	if !ok {
		s.log.Warn("login rejected", slog.String("username", req.Username))
		writeJSON(w, http.StatusUnauthorized, loginResponse{Success: false, Message: "Invalid credentials"})
		return
	}

	token, err := s.auth.IssueToken(id)
	if err != nil {
		s.log.Error("token issue failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, loginResponse{Success: false, Message: "internal error"})
		return
	}

	s.log.Info("login succeeded",
		slog.String("username", id.Username),
		slog.String("role", id.Role),
	)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, User: &id})
}

// handleValidate responds to POST /api/validate. The token arrives as an
// Authorization Bearer header; a valid token yields the embedded identity.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, validateResponse{Valid: false})
		return
	}

	id, ok := s.auth.VerifyToken(token)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, validateResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, User: &id})
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
