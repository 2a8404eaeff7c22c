// Package simulate produces the synthetic firewall telemetry consumed by the
// dashboard hub: events, alerts, traffic-metrics snapshots, statistics
// snapshots, and a seed rule set. It stands in for a real firewall feed and
// has no knowledge of sessions or transports.
package simulate

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/firewatch/dashboard/internal/state"
)

// DefaultAlertProbability is the per-event-tick chance of raising an alert.
const DefaultAlertProbability = 0.15

var sourceIPs = []string{
	"192.168.1.1", "192.168.1.5", "192.168.1.10", "10.0.0.5", "10.0.0.15",
	"172.16.0.1", "8.8.8.8", "1.1.1.1", "203.0.113.45", "198.51.100.20",
	"192.0.2.1", "203.0.113.100", "198.51.100.50", "192.168.2.1", "10.20.0.1",
}

var destIPs = []string{
	"8.8.8.8", "1.1.1.1", "208.67.222.222", "208.67.220.220", "9.9.9.9",
	"203.0.113.45", "198.51.100.20", "192.0.2.1", "203.0.113.100", "198.51.100.50",
}

var knownPorts = []int{
	80, 443, 22, 23, 25, 53, 110, 143, 389, 445,
	465, 587, 993, 995, 3306, 3389, 5432, 8080, 8443,
}

var eventProtocols = []string{"TCP", "UDP", "ICMP", "DNS", "TLS", "SSH"}

var eventActions = []state.EventAction{
	state.EventActionAllow, state.EventActionBlock,
	state.EventActionDrop, state.EventActionReject,
}

var severities = []state.Severity{
	state.SeverityLow, state.SeverityMedium,
	state.SeverityHigh, state.SeverityCritical,
}

var alertTypes = []string{
	"Connection Attempt",
	"Port Scan Detected",
	"DDoS Attack",
	"Malicious IP Blocked",
	"Policy Violation",
	"Brute Force Attempt",
	"Unusual Traffic",
	"Failed Authentication",
}

var countries = []string{"US", "CN", "RU", "KP", "IR", "SY", "GB", "DE", "FR", "IN"}

var ruleProtocols = []state.Protocol{
	state.ProtocolTCP, state.ProtocolUDP, state.ProtocolICMP, state.ProtocolAny,
}

var ruleActions = []state.RuleAction{
	state.RuleActionAllow, state.RuleActionBlock, state.RuleActionLog,
}

// Generator synthesizes domain values from its own random source. It is not
// safe for concurrent use; the hub drives it from a single goroutine.
type Generator struct {
	rng       *rand.Rand
	alertProb float64
	now       func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithSeed makes the random stream deterministic. Without it the generator
// self-seeds.
func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithAlertProbability overrides the per-tick alert probability. Values
// outside [0, 1] are clamped.
func WithAlertProbability(p float64) Option {
	return func(g *Generator) {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		g.alertProb = p
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		alertProb: DefaultAlertProbability,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Event synthesizes one firewall event. Severity is forced to High whenever
// the action is BLOCK or DROP, overriding the random draw.
func (g *Generator) Event() state.Event {
	action := eventActions[g.rng.IntN(len(eventActions))]
	severity := severities[g.rng.IntN(len(severities))]
	if action == state.EventActionBlock || action == state.EventActionDrop {
		severity = state.SeverityHigh
	}

	return state.Event{
		ID:         uuid.NewString(),
		Timestamp:  g.now(),
		SourceIP:   sourceIPs[g.rng.IntN(len(sourceIPs))],
		DestIP:     destIPs[g.rng.IntN(len(destIPs))],
		SourcePort: g.rng.IntN(65535),
		DestPort:   knownPorts[g.rng.IntN(len(knownPorts))],
		Protocol:   eventProtocols[g.rng.IntN(len(eventProtocols))],
		Action:     action,
		Severity:   severity,
		Bytes:      g.rng.IntN(1_000_000),
		Packets:    g.rng.IntN(5000),
		Country:    countries[g.rng.IntN(len(countries))],
		RuleName:   fmt.Sprintf("Rule-%d", g.rng.IntN(100)),
	}
}

// ShouldAlert draws whether the current event tick also raises an alert.
func (g *Generator) ShouldAlert() bool {
	return g.rng.Float64() < g.alertProb
}

// Alert synthesizes one alert in status New.
func (g *Generator) Alert() state.Alert {
	src := sourceIPs[g.rng.IntN(len(sourceIPs))]
	return state.Alert{
		ID:        uuid.NewString(),
		Timestamp: g.now(),
		Type:      alertTypes[g.rng.IntN(len(alertTypes))],
		Severity:  severities[g.rng.IntN(len(severities))],
		SourceIP:  src,
		DestIP:    destIPs[g.rng.IntN(len(destIPs))],
		Message:   fmt.Sprintf("Security alert detected: Suspicious activity from %s", src),
		Status:    state.AlertStatusNew,
	}
}

// TrafficMetrics synthesizes a full traffic snapshot: 24 hourly in/out
// points, a protocol distribution, and top-10 source IPs and ports sorted by
// traffic descending.
func (g *Generator) TrafficMetrics() state.TrafficMetrics {
	hours := make([]state.HourPoint, 24)
	for i := range hours {
		hours[i] = state.HourPoint{
			Time:     fmt.Sprintf("%02d:00", i),
			Inbound:  g.rng.IntN(100) + 20,
			Outbound: g.rng.IntN(80) + 10,
		}
	}

	topIPs := make([]state.IPTraffic, 0, 10)
	for _, ip := range sourceIPs[:10] {
		topIPs = append(topIPs, state.IPTraffic{IP: ip, Traffic: g.rng.IntN(5000) + 1000})
	}
	sort.Slice(topIPs, func(i, j int) bool { return topIPs[i].Traffic > topIPs[j].Traffic })

	topPorts := make([]state.PortTraffic, 0, 10)
	for _, p := range knownPorts[:10] {
		topPorts = append(topPorts, state.PortTraffic{Port: p, Traffic: g.rng.IntN(3000) + 500})
	}
	sort.Slice(topPorts, func(i, j int) bool { return topPorts[i].Traffic > topPorts[j].Traffic })

	return state.TrafficMetrics{
		Hours: hours,
		ProtocolDistribution: state.ProtocolDistribution{
			TCP:   g.rng.IntN(40) + 30,
			UDP:   g.rng.IntN(30) + 20,
			ICMP:  g.rng.IntN(20) + 5,
			Other: g.rng.IntN(15) + 5,
		},
		TopSourceIPs: topIPs,
		TopPorts:     topPorts,
	}
}

// Statistics synthesizes an aggregate-counter snapshot. The rule and alert
// counters come from the live store; the traffic totals are simulated.
func (g *Generator) Statistics(activeRules, criticalAlerts, highAlerts int) state.Statistics {
	return state.Statistics{
		TotalEvents24h:     g.rng.IntN(5000) + 1000,
		BlockedConnections: g.rng.IntN(500) + 100,
		AllowedConnections: g.rng.IntN(2000) + 500,
		ActiveRules:        activeRules,
		CriticalAlerts:     criticalAlerts,
		HighAlerts:         highAlerts,
	}
}

// Rules synthesizes a seed rule set of n rules with IDs 1..n and priority
// equal to ID, used to populate the store at startup.
func (g *Generator) Rules(n int) []state.Rule {
	rules := make([]state.Rule, 0, n)
	for i := 1; i <= n; i++ {
		rules = append(rules, state.Rule{
			ID:           i,
			Name:         fmt.Sprintf("Rule-%03d", i),
			SourceIP:     fmt.Sprintf("%d.%d.0.0/16", g.rng.IntN(256), g.rng.IntN(256)),
			DestIP:       fmt.Sprintf("%d.%d.0.0/16", g.rng.IntN(256), g.rng.IntN(256)),
			Port:         fmt.Sprintf("%d", knownPorts[g.rng.IntN(len(knownPorts))]),
			Protocol:     ruleProtocols[g.rng.IntN(len(ruleProtocols))],
			Action:       ruleActions[g.rng.IntN(len(ruleActions))],
			Priority:     i,
			Enabled:      g.rng.Float64() > 0.2,
			Hits:         g.rng.IntN(10000),
			LastModified: g.now().Add(-time.Duration(g.rng.IntN(30*24)) * time.Hour),
		})
	}
	return rules
}
