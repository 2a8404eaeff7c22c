package hub

import (
	"sync/atomic"

	"github.com/firewatch/dashboard/internal/auth"
)

// Session is one live client connection and its authentication and
// subscription state. Sessions are created by Hub.Attach and are valid until
// detached; they are never persisted and a reconnecting client is a brand-new
// session.
//
// The send channel and dropped counter are shared with the transport; every
// other field is owned by the hub's run goroutine and must not be touched
// elsewhere.
type Session struct {
	id      string
	send    chan []byte
	dropped atomic.Int64

	authenticated bool
	identity      auth.Identity
	subscribed    bool
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Send returns the channel the transport drains into outbound frames. The
// channel is closed when the session is detached or forcibly disconnected;
// the transport must treat a closed channel as an order to close the
// connection.
func (s *Session) Send() <-chan []byte { return s.send }

// Dropped returns how many frames were discarded because this session's
// buffer was full.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// actor returns the audit-trail actor name for this session.
func (s *Session) actor() string {
	if s.authenticated {
		return s.identity.Username
	}
	return "anonymous"
}
