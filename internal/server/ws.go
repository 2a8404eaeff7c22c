package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/firewatch/dashboard/internal/hub"
)

const (
	// maxInboundFrame caps client frames; commands are small JSON objects
	// and anything larger is a misbehaving client.
	maxInboundFrame = 64 * 1024

	writeTimeout = 10 * time.Second
)

// upgrader enforces a same-origin policy on WebSocket upgrades, with a
// localhost allowance for development front ends.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.Contains(origin, "://localhost:") || strings.Contains(origin, "://127.0.0.1:") {
			return true
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// handleWS upgrades the connection and runs its read loop: every inbound
// frame is handed to the hub, and a writer goroutine drains the session's
// send channel back into the socket. The session ends when either side
// closes the connection or the hub closes the send channel.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err),
		)
		return
	}

	sess := s.hub.Attach()
	s.log.Info("websocket connected",
		slog.String("session_id", sess.ID()),
		slog.String("remote_addr", conn.RemoteAddr().String()),
	)

	go s.writePump(conn, sess)

	conn.SetReadLimit(maxInboundFrame)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.hub.Dispatch(sess, raw)
	}

	// Read error: the client is gone or the hub forced the close.
	s.hub.Detach(sess)
	conn.Close()
	s.log.Info("websocket disconnected",
		slog.String("session_id", sess.ID()),
		slog.Int64("dropped_frames", sess.Dropped()),
	)
}

// writePump drains the session's send channel into the socket. When the hub
// closes the channel (detach or forced disconnect), any buffered frames are
// flushed first, then a close frame ends the connection.
func (s *Server) writePump(conn *websocket.Conn, sess *hub.Session) {
	for raw := range sess.Send() {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			s.log.Warn("websocket write failed",
				slog.String("session_id", sess.ID()),
				slog.Any("error", err),
			)
			conn.Close()
			// Keep draining so the hub's channel close is observed.
			for range sess.Send() {
			}
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}
