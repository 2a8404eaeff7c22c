package server_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firewatch/dashboard/internal/auth"
	"github.com/firewatch/dashboard/internal/server"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()

	authSvc, err := auth.NewService("test-secret", time.Hour, []auth.User{
		{Username: "admin@soc.local", Password: "firewall123", Role: "admin"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	srv := server.NewServer(quietLogger(), authSvc, nil)
	metricsHandler := promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	return server.NewRouter(srv, metricsHandler), authSvc
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	router, authSvc := newTestRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username":"admin@soc.local","password":"firewall123"}`))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var body struct {
		Success bool          `json:"success"`
		Token   string        `json:"token"`
		User    auth.Identity `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success {
		t.Error("Success = false")
	}
	if body.User.Username != "admin@soc.local" || body.User.Role != "admin" {
		t.Errorf("User = %+v", body.User)
	}

	// The issued token must verify against the same service.
	if _, ok := authSvc.VerifyToken(body.Token); !ok {
		t.Error("issued token failed verification")
	}
}

func TestLoginRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"wrong password", `{"username":"admin@soc.local","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"ghost","password":"firewall123"}`, http.StatusUnauthorized},
		{"malformed body", `{"username":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router, _ := newTestRouter(t)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body)))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Success bool `json:"success"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success {
				t.Error("Success = true on a rejection")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	router, authSvc := newTestRouter(t)
	token, err := authSvc.IssueToken(auth.Identity{Username: "admin@soc.local", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name      string
		header    string
		wantCode  int
		wantValid bool
	}{
		{"valid token", "Bearer " + token, http.StatusOK, true},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, false},
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/validate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Valid bool           `json:"valid"`
				User  *auth.Identity `json:"user"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", body.Valid, tt.wantValid)
			}
			if tt.wantValid && (body.User == nil || body.User.Username != "admin@soc.local") {
				t.Errorf("User = %+v", body.User)
			}
		})
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
