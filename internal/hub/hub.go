// Package hub is the synchronization core of the dashboard server. A single
// run goroutine owns the domain state store and drains one command channel
// carrying session attach/detach, decoded client commands, and ticker
// firings, in strict arrival order. Because every mutation and its broadcast
// happen on that one goroutine, each mutation+broadcast pair is atomic to
// observers without any locking around the store.
//
// Fan-out follows the drop-on-full discipline: each session has a buffered
// send channel and a slow session loses frames rather than stalling the run
// loop or the broadcast to the remaining sessions.
package hub

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/firewatch/dashboard/internal/audit"
	"github.com/firewatch/dashboard/internal/auth"
	"github.com/firewatch/dashboard/internal/metrics"
	"github.com/firewatch/dashboard/internal/protocol"
	"github.com/firewatch/dashboard/internal/simulate"
	"github.com/firewatch/dashboard/internal/state"
)

// Default ticker periods, matching the feed the dashboard UI was built
// against: an event every 2 s, statistics every 5 s, traffic metrics every
// 10 s. The three tickers are independent; their relative phase is
// unspecified.
const (
	DefaultEventInterval      = 2 * time.Second
	DefaultStatisticsInterval = 5 * time.Second
	DefaultMetricsInterval    = 10 * time.Second
)

// DefaultSendBuffer is the per-session outbound channel depth.
const DefaultSendBuffer = 64

// Initial snapshot sizes sent in response to request-initial-data.
const (
	initialEventCount = 50
	initialAlertCount = 20
)

// Verifier is the token-verification capability the hub authenticates
// sessions with.
type Verifier interface {
	VerifyToken(token string) (auth.Identity, bool)
}

// Options configures a Hub.
type Options struct {
	Logger    *slog.Logger
	Store     *state.Store
	Generator *simulate.Generator
	Verifier  Verifier

	// Metrics is optional; a nil value gets a private registry so callers
	// without an exporter need no wiring.
	Metrics *metrics.Metrics

	// Trail is the optional audit trail appended to on every applied
	// mutation.
	Trail *audit.Trail

	// SendBuffer is the per-session channel depth; ≤ 0 uses
	// DefaultSendBuffer.
	SendBuffer int

	// Ticker periods. A period ≤ 0 disables that ticker, which tests use
	// to drive the hub deterministically.
	EventInterval      time.Duration
	StatisticsInterval time.Duration
	MetricsInterval    time.Duration
}

type commandKind int

const (
	cmdAttach commandKind = iota
	cmdDetach
	cmdInbound
	cmdEventTick
	cmdStatisticsTick
	cmdMetricsTick
)

// command is one unit of work for the run loop. Client commands carry the
// originating session; tick commands carry neither.
type command struct {
	kind commandKind
	sess *Session
	msg  protocol.Inbound
}

// Hub routes commands between sessions and the state store. Create with New,
// then call Run exactly once; Attach, Detach, and Dispatch are safe to call
// from any goroutine while Run is live.
type Hub struct {
	log      *slog.Logger
	store    *state.Store
	gen      *simulate.Generator
	verifier Verifier
	metrics  *metrics.Metrics
	trail    *audit.Trail

	sendBuffer    int
	eventInterval time.Duration
	statsInterval time.Duration
	trafficIntvl  time.Duration

	commands chan command
	done     chan struct{}

	// sessions is owned by the run goroutine.
	sessions map[string]*Session
}

// New creates a Hub.
func New(opts Options) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	return &Hub{
		log:           opts.Logger,
		store:         opts.Store,
		gen:           opts.Generator,
		verifier:      opts.Verifier,
		metrics:       opts.Metrics,
		trail:         opts.Trail,
		sendBuffer:    opts.SendBuffer,
		eventInterval: opts.EventInterval,
		statsInterval: opts.StatisticsInterval,
		trafficIntvl:  opts.MetricsInterval,
		commands:      make(chan command, 256),
		done:          make(chan struct{}),
		sessions:      make(map[string]*Session),
	}
}

// Run starts the tickers and drains the command channel until ctx is
// cancelled, then detaches every remaining session. It blocks; call it in
// its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.startTickers(ctx)

	for {
		select {
		case cmd := <-h.commands:
			h.handle(cmd)
		case <-ctx.Done():
			close(h.done)
			for _, sess := range h.sessions {
				delete(h.sessions, sess.id)
				close(sess.send)
			}
			h.metrics.ConnectedSessions.Set(0)
			return
		}
	}
}

// Attach creates a new session and registers it with the run loop. The
// caller owns the transport side: it must drain Send() and call Detach when
// the connection drops.
func (h *Hub) Attach() *Session {
	sess := &Session{
		id:   uuid.NewString(),
		send: make(chan []byte, h.sendBuffer),
	}
	h.post(command{kind: cmdAttach, sess: sess})
	return sess
}

// Detach removes the session and closes its send channel. Detaching an
// unknown or already-removed session is a no-op.
func (h *Hub) Detach(sess *Session) {
	h.post(command{kind: cmdDetach, sess: sess})
}

// Dispatch decodes one raw inbound frame from sess and hands it to the run
// loop. Frames that fail boundary validation are counted, logged, and
// dropped; no error reaches the session.
func (h *Hub) Dispatch(sess *Session, raw []byte) {
	msg, err := protocol.DecodeInbound(raw)
	if err != nil {
		h.metrics.RejectedMessages.Inc()
		h.log.Warn("hub: rejected inbound frame",
			slog.String("session_id", sess.id),
			slog.Any("error", err),
		)
		return
	}
	h.post(command{kind: cmdInbound, sess: sess, msg: msg})
}

// post enqueues cmd unless the hub has already shut down.
func (h *Hub) post(cmd command) {
	select {
	case h.commands <- cmd:
	case <-h.done:
	}
}

// handle runs on the run goroutine only.
func (h *Hub) handle(cmd command) {
	switch cmd.kind {
	case cmdAttach:
		h.sessions[cmd.sess.id] = cmd.sess
		h.metrics.ConnectedSessions.Inc()
		h.log.Info("hub: session attached", slog.String("session_id", cmd.sess.id))

	case cmdDetach:
		h.remove(cmd.sess, "disconnect")

	case cmdInbound:
		// Frames queued behind a forced disconnect arrive after the
		// session is gone; drop them.
		if _, live := h.sessions[cmd.sess.id]; !live {
			return
		}
		h.handleInbound(cmd.sess, cmd.msg)

	case cmdEventTick:
		h.handleEventTick()

	case cmdStatisticsTick:
		critical, high := h.store.AlertSeverityCounts()
		st := h.gen.Statistics(h.store.ActiveRuleCount(), critical, high)
		h.store.SetStatistics(st)
		h.broadcast(protocol.TypeStatistics, st)

	case cmdMetricsTick:
		m := h.gen.TrafficMetrics()
		h.store.SetMetrics(m)
		h.broadcast(protocol.TypeTrafficMetrics, m)
	}
}

func (h *Hub) handleEventTick() {
	ev := h.gen.Event()
	h.store.AppendEvent(ev)
	h.metrics.EventsGenerated.Inc()
	h.broadcast(protocol.TypeNewEvent, ev)

	if h.gen.ShouldAlert() {
		al := h.gen.Alert()
		h.store.AppendAlert(al)
		h.metrics.AlertsGenerated.Inc()
		h.broadcast(protocol.TypeNewAlert, al)
	}
}

func (h *Hub) handleInbound(sess *Session, msg protocol.Inbound) {
	switch m := msg.(type) {
	case protocol.Authenticate:
		h.authenticate(sess, m.Token)

	case protocol.RequestInitialData:
		// Deliberately ungated: a client recovering from a reconnect may
		// bootstrap before authenticating. Logged so the gap stays
		// visible.
		if !sess.authenticated {
			h.log.Debug("hub: initial data requested by unauthenticated session",
				slog.String("session_id", sess.id))
		}
		h.sendTo(sess, protocol.TypeInitialRules, h.store.Rules())
		h.sendTo(sess, protocol.TypeInitialEvents, h.store.RecentEvents(initialEventCount))
		h.sendTo(sess, protocol.TypeInitialAlerts, h.store.RecentAlerts(initialAlertCount))
		h.sendTo(sess, protocol.TypeStatistics, h.store.Statistics())
		h.sendTo(sess, protocol.TypeTrafficMetrics, h.store.Metrics())

	case protocol.SubscribeEvents:
		// The flag does not gate any broadcast; every session receives
		// the full stream regardless.
		sess.subscribed = true

	case protocol.RequestRules:
		h.sendTo(sess, protocol.TypeRulesList, h.store.Rules())

	case protocol.AddRule:
		rule := h.store.AddRule(state.RuleFields{
			Name:     m.Name,
			SourceIP: m.SourceIP,
			DestIP:   m.DestIP,
			Port:     m.Port,
			Protocol: state.Protocol(m.Protocol),
			Action:   state.RuleAction(m.Action),
		}, time.Now())
		h.applied(sess, protocol.TypeAddRule, strconv.Itoa(rule.ID))
		h.broadcast(protocol.TypeRulesUpdated, h.store.Rules())
		h.sendTo(sess, protocol.TypeRuleAdded, rule)

	case protocol.UpdateRule:
		rule, ok := h.store.UpdateRule(m.ID, rulePatch(m), time.Now())
		if !ok {
			return
		}
		h.applied(sess, protocol.TypeUpdateRule, strconv.Itoa(m.ID))
		h.broadcast(protocol.TypeRulesUpdated, h.store.Rules())
		h.sendTo(sess, protocol.TypeRuleUpdated, rule)

	case protocol.DeleteRule:
		if h.store.DeleteRule(m.ID) {
			h.applied(sess, protocol.TypeDeleteRule, strconv.Itoa(m.ID))
			h.broadcast(protocol.TypeRulesUpdated, h.store.Rules())
		}
		// The removal is idempotent: the originator is acknowledged even
		// when no rule was actually removed.
		h.sendTo(sess, protocol.TypeRuleDeleted, protocol.RuleID{ID: m.ID})

	case protocol.ToggleRule:
		if _, ok := h.store.ToggleRule(m.ID, time.Now()); ok {
			h.applied(sess, protocol.TypeToggleRule, strconv.Itoa(m.ID))
			h.broadcast(protocol.TypeRulesUpdated, h.store.Rules())
		}

	case protocol.AcknowledgeAlert:
		if h.store.SetAlertStatus(m.ID, state.AlertStatusAcknowledged) {
			h.applied(sess, protocol.TypeAcknowledgeAlert, m.ID)
			h.broadcast(protocol.TypeAlertAcknowledged, protocol.AlertID{ID: m.ID})
		}

	case protocol.ResolveAlert:
		if h.store.SetAlertStatus(m.ID, state.AlertStatusResolved) {
			h.applied(sess, protocol.TypeResolveAlert, m.ID)
			h.broadcast(protocol.TypeAlertResolved, protocol.AlertID{ID: m.ID})
		}
	}
}

// authenticate runs the one-time session gate. Failure is acknowledged and
// then enforced by disconnecting: the failure frame is buffered before the
// send channel closes, so the transport delivers it and then drops the
// connection.
func (h *Hub) authenticate(sess *Session, token string) {
	id, ok := h.verifier.VerifyToken(token)
	if !ok {
		h.sendTo(sess, protocol.TypeAuthenticated, protocol.AuthResult{Success: false})
		h.log.Warn("hub: authentication failed, disconnecting",
			slog.String("session_id", sess.id))
		h.remove(sess, "auth failure")
		return
	}

	sess.authenticated = true
	sess.identity = id
	h.sendTo(sess, protocol.TypeAuthenticated, protocol.AuthResult{Success: true})
	h.log.Info("hub: session authenticated",
		slog.String("session_id", sess.id),
		slog.String("username", id.Username),
		slog.String("role", id.Role),
	)
}

// remove deletes the session and closes its send channel. No-op when the
// session is already gone.
func (h *Hub) remove(sess *Session, reason string) {
	if _, live := h.sessions[sess.id]; !live {
		return
	}
	delete(h.sessions, sess.id)
	close(sess.send)
	h.metrics.ConnectedSessions.Dec()
	h.log.Info("hub: session detached",
		slog.String("session_id", sess.id),
		slog.String("reason", reason),
	)
}

// applied records one successfully applied mutation in the metrics and the
// audit trail.
func (h *Hub) applied(sess *Session, action, subject string) {
	h.metrics.MutationsApplied.WithLabelValues(action).Inc()
	if h.trail == nil {
		return
	}
	if err := h.trail.Append(audit.Record{Actor: sess.actor(), Action: action, Subject: subject}); err != nil {
		h.log.Error("hub: audit append failed", slog.Any("error", err))
	}
}

// broadcast encodes one message and delivers it to every live session with a
// non-blocking send. A full session buffer drops the frame for that session
// only; the broadcast always reaches the rest.
func (h *Hub) broadcast(msgType string, data any) {
	raw, err := protocol.Encode(msgType, data)
	if err != nil {
		h.log.Error("hub: encode broadcast failed",
			slog.String("type", msgType), slog.Any("error", err))
		return
	}
	h.metrics.BroadcastsTotal.Inc()

	for _, sess := range h.sessions {
		h.deliver(sess, msgType, raw)
	}
}

// sendTo encodes one message for a single session.
func (h *Hub) sendTo(sess *Session, msgType string, data any) {
	raw, err := protocol.Encode(msgType, data)
	if err != nil {
		h.log.Error("hub: encode send failed",
			slog.String("type", msgType), slog.Any("error", err))
		return
	}
	h.deliver(sess, msgType, raw)
}

func (h *Hub) deliver(sess *Session, msgType string, raw []byte) {
	select {
	case sess.send <- raw:
	default:
		sess.dropped.Add(1)
		h.metrics.DroppedMessages.Inc()
		h.log.Warn("hub: session buffer full, dropping frame",
			slog.String("session_id", sess.id),
			slog.String("type", msgType),
		)
	}
}

// rulePatch converts the wire-level update into a store patch.
func rulePatch(m protocol.UpdateRule) state.RulePatch {
	patch := state.RulePatch{
		Name:     m.Name,
		SourceIP: m.SourceIP,
		DestIP:   m.DestIP,
		Port:     m.Port,
		Priority: m.Priority,
		Enabled:  m.Enabled,
	}
	if m.Protocol != nil {
		p := state.Protocol(*m.Protocol)
		patch.Protocol = &p
	}
	if m.Action != nil {
		a := state.RuleAction(*m.Action)
		patch.Action = &a
	}
	return patch
}
