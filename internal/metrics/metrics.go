// Package metrics exposes the server's Prometheus instrumentation. All
// collectors are created against a caller-supplied registry so tests can use
// an isolated one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the server updates.
type Metrics struct {
	// ConnectedSessions tracks the number of live WebSocket sessions.
	ConnectedSessions prometheus.Gauge

	// BroadcastsTotal counts fan-out messages, one increment per message
	// type broadcast (not per receiving session).
	BroadcastsTotal prometheus.Counter

	// DroppedMessages counts per-session sends abandoned because the
	// session's buffer was full.
	DroppedMessages prometheus.Counter

	// EventsGenerated and AlertsGenerated count synthetic telemetry.
	EventsGenerated prometheus.Counter
	AlertsGenerated prometheus.Counter

	// MutationsApplied counts applied state mutations by command name.
	MutationsApplied *prometheus.CounterVec

	// RejectedMessages counts inbound frames dropped at the protocol
	// boundary (unknown type, malformed data, failed validation).
	RejectedMessages prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firewatch",
			Name:      "connected_sessions",
			Help:      "Number of live WebSocket sessions.",
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "broadcasts_total",
			Help:      "Messages fanned out to all sessions.",
		}),
		DroppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "dropped_messages_total",
			Help:      "Per-session sends dropped because the buffer was full.",
		}),
		EventsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "events_generated_total",
			Help:      "Synthetic firewall events produced by the ticker.",
		}),
		AlertsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "alerts_generated_total",
			Help:      "Synthetic alerts produced by the ticker.",
		}),
		MutationsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "mutations_applied_total",
			Help:      "State mutations applied, labelled by command.",
		}, []string{"command"}),
		RejectedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "rejected_messages_total",
			Help:      "Inbound frames rejected at the protocol boundary.",
		}),
	}

	reg.MustRegister(
		m.ConnectedSessions,
		m.BroadcastsTotal,
		m.DroppedMessages,
		m.EventsGenerated,
		m.AlertsGenerated,
		m.MutationsApplied,
		m.RejectedMessages,
	)
	return m
}
