// Package auth implements the credential and token capability the dashboard
// depends on: credentials resolve to an identity, identities are issued
// tokens, and tokens verify back to an identity or are rejected. Tokens are
// HS256-signed JWTs with a bounded lifetime.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the token lifetime used when the service is configured
// without one.
const DefaultTokenTTL = 24 * time.Hour

// Identity is the resolved principal attached to a session after a
// successful token verification.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// User is one configured login principal.
type User struct {
	Username string
	Password string
	Role     string
}

// Service issues and verifies session tokens against a static user set.
// It is safe for concurrent use after construction.
type Service struct {
	secret []byte
	ttl    time.Duration
	users  map[string]User
	now    func() time.Time
}

// NewService creates a Service. secret must be non-empty; ttl ≤ 0 falls back
// to DefaultTokenTTL.
func NewService(secret string, ttl time.Duration, users []User) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	byName := make(map[string]User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		users:  byName,
		now:    time.Now,
	}, nil
}

// Authenticate checks the credentials against the configured users and
// returns the matching identity. The second return is false on any mismatch;
// the caller learns nothing about which part failed.
func (s *Service) Authenticate(username, password string) (Identity, bool) {
	u, ok := s.users[username]
	if !ok || u.Password != password {
		return Identity{}, false
	}
	return Identity{Username: u.Username, Role: u.Role}, true
}

// IssueToken signs a token carrying id with the service lifetime.
func (s *Service) IssueToken(id Identity) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"username": id.Username,
		"role":     id.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// VerifyToken parses and validates token and returns the embedded identity.
// The second return is false for any expired, tampered, or foreign token.
func (s *Service) VerifyToken(token string) (Identity, bool) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, false
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if username == "" {
		return Identity{}, false
	}
	return Identity{Username: username, Role: role}, true
}
