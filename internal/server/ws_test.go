package server_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firewatch/dashboard/internal/auth"
	"github.com/firewatch/dashboard/internal/hub"
	"github.com/firewatch/dashboard/internal/protocol"
	"github.com/firewatch/dashboard/internal/server"
	"github.com/firewatch/dashboard/internal/simulate"
	"github.com/firewatch/dashboard/internal/state"
)

// startStack runs a full hub behind an httptest server and returns the ws URL.
func startStack(t *testing.T) (string, *auth.Service, *state.Store) {
	t.Helper()

	authSvc, err := auth.NewService("test-secret", time.Hour, []auth.User{
		{Username: "admin@soc.local", Password: "firewall123", Role: "admin"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	gen := simulate.New(simulate.WithSeed(7))
	store := state.NewStore(state.Options{})
	store.SeedRules(gen.Rules(3))
	store.SetMetrics(gen.TrafficMetrics())
	store.SetStatistics(gen.Statistics(store.ActiveRuleCount(), 0, 0))

	h := hub.New(hub.Options{
		Logger:    quietLogger(),
		Store:     store,
		Generator: gen,
		Verifier:  authSvc,
		// Tickers stay off so the test controls every frame.
		EventInterval:      -1,
		StatisticsInterval: -1,
		MetricsInterval:    -1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	srv := server.NewServer(quietLogger(), authSvc, h)
	metricsHandler := promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	ts := httptest.NewServer(server.NewRouter(srv, metricsHandler))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", authSvc, store
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return env
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebSocketInitialData(t *testing.T) {
	t.Parallel()

	url, _, _ := startStack(t)
	conn := dial(t, url)

	writeJSON(t, conn, map[string]any{"type": protocol.TypeRequestInitialData})

	want := []string{
		protocol.TypeInitialRules,
		protocol.TypeInitialEvents,
		protocol.TypeInitialAlerts,
		protocol.TypeStatistics,
		protocol.TypeTrafficMetrics,
	}
	for _, wantType := range want {
		env := readEnvelope(t, conn)
		if env.Type != wantType {
			t.Fatalf("frame type = %q, want %q", env.Type, wantType)
		}
	}

	// The seeded rule set rides along in the first frame.
	// Re-request and check the payload shape this time.
	writeJSON(t, conn, map[string]any{"type": protocol.TypeRequestInitialData})
	env := readEnvelope(t, conn)
	var rules []state.Rule
	if err := json.Unmarshal(env.Data, &rules); err != nil {
		t.Fatalf("decode rules: %v", err)
	}
	if len(rules) != 3 {
		t.Errorf("len(rules) = %d, want 3", len(rules))
	}
}

func TestWebSocketAuthenticatedMutation(t *testing.T) {
	t.Parallel()

	url, authSvc, store := startStack(t)
	conn := dial(t, url)

	token, err := authSvc.IssueToken(auth.Identity{Username: "admin@soc.local", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	writeJSON(t, conn, map[string]any{
		"type": protocol.TypeAuthenticate,
		"data": map[string]string{"token": token},
	})
	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeAuthenticated {
		t.Fatalf("frame type = %q, want %q", env.Type, protocol.TypeAuthenticated)
	}
	var ack protocol.AuthResult
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatalf("decode auth ack: %v", err)
	}
	if !ack.Success {
		t.Fatal("auth ack Success = false")
	}

	writeJSON(t, conn, map[string]any{
		"type": protocol.TypeAddRule,
		"data": map[string]any{
			"name":     "Block scanners",
			"sourceIP": "203.0.113.50",
			"destIP":   "any",
			"port":     "22",
			"protocol": "TCP",
			"action":   "BLOCK",
		},
	})

	env = readEnvelope(t, conn)
	if env.Type != protocol.TypeRulesUpdated {
		t.Fatalf("frame type = %q, want %q", env.Type, protocol.TypeRulesUpdated)
	}
	env = readEnvelope(t, conn)
	if env.Type != protocol.TypeRuleAdded {
		t.Fatalf("frame type = %q, want %q", env.Type, protocol.TypeRuleAdded)
	}

	var added state.Rule
	if err := json.Unmarshal(env.Data, &added); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	if added.ID != 4 {
		t.Errorf("ID = %d, want 4", added.ID)
	}
	if len(store.Rules()) != 4 {
		t.Errorf("store has %d rules, want 4", len(store.Rules()))
	}
}

func TestWebSocketAuthFailureCloses(t *testing.T) {
	t.Parallel()

	url, _, _ := startStack(t)
	conn := dial(t, url)

	writeJSON(t, conn, map[string]any{
		"type": protocol.TypeAuthenticate,
		"data": map[string]string{"token": "not-a-token"},
	})

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeAuthenticated {
		t.Fatalf("frame type = %q, want %q", env.Type, protocol.TypeAuthenticated)
	}
	var ack protocol.AuthResult
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatalf("decode auth ack: %v", err)
	}
	if ack.Success {
		t.Fatal("auth ack Success = true for a bad token")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection still open after failed authentication")
	}
}
