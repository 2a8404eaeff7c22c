package auth_test

import (
	"testing"
	"time"

	"github.com/firewatch/dashboard/internal/auth"
)

func newTestService(t *testing.T, ttl time.Duration) *auth.Service {
	t.Helper()
	svc, err := auth.NewService("test-secret", ttl, []auth.User{
		{Username: "admin@soc.local", Password: "firewall123", Role: "admin"},
		{Username: "viewer@soc.local", Password: "readonly", Role: "viewer"},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := auth.NewService("", 0, nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, 0)

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
		wantRole string
	}{
		{"valid admin", "admin@soc.local", "firewall123", true, "admin"},
		{"valid viewer", "viewer@soc.local", "readonly", true, "viewer"},
		{"wrong password", "admin@soc.local", "nope", false, ""},
		{"unknown user", "ghost@soc.local", "firewall123", false, ""},
		{"empty credentials", "", "", false, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := svc.Authenticate(tt.username, tt.password)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id.Role != tt.wantRole {
				t.Errorf("role = %q, want %q", id.Role, tt.wantRole)
			}
		})
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, time.Hour)

	token, err := svc.IssueToken(auth.Identity{Username: "admin@soc.local", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	id, ok := svc.VerifyToken(token)
	if !ok {
		t.Fatal("VerifyToken rejected a freshly issued token")
	}
	if id.Username != "admin@soc.local" || id.Role != "admin" {
		t.Errorf("identity = %+v, want admin@soc.local/admin", id)
	}
}

func TestVerifyRejectsGarbageAndForeignTokens(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, time.Hour)

	if _, ok := svc.VerifyToken("not-a-jwt"); ok {
		t.Error("accepted a non-JWT string")
	}
	if _, ok := svc.VerifyToken(""); ok {
		t.Error("accepted an empty token")
	}

	// Token signed with a different secret must be rejected.
	other, err := auth.NewService("other-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	foreign, err := other.IssueToken(auth.Identity{Username: "admin@soc.local", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, ok := svc.VerifyToken(foreign); ok {
		t.Error("accepted a token signed with a foreign secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	// A negative-adjacent TTL is normalised to the default, so use a tiny
	// positive lifetime and wait it out.
	svc := newTestService(t, time.Millisecond)

	token, err := svc.IssueToken(auth.Identity{Username: "admin@soc.local", Role: "admin"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	time.Sleep(1100 * time.Millisecond) // exp has one-second resolution

	if _, ok := svc.VerifyToken(token); ok {
		t.Error("accepted an expired token")
	}
}
