// Package state owns the canonical in-memory collections of the dashboard
// server: the firewall rule set, the bounded event and alert logs, and the
// latest traffic-metrics and statistics snapshots. It exposes typed model
// structs, read accessors that return point-in-time copies, and the mutation
// operations applied to them.
//
// The Store carries no locking of its own: it is owned by the hub's single
// run goroutine and must only be read or mutated from that goroutine (or from
// a single-threaded test). Introducing a second writer requires wrapping every
// mutation+broadcast pair in an external critical section.
package state

import "time"

// Protocol is the transport protocol matched by a firewall rule.
type Protocol string

const (
	ProtocolTCP  Protocol = "TCP"
	ProtocolUDP  Protocol = "UDP"
	ProtocolICMP Protocol = "ICMP"
	ProtocolAny  Protocol = "ANY"
)

// RuleAction is the disposition a firewall rule applies to matching traffic.
type RuleAction string

const (
	RuleActionAllow RuleAction = "ALLOW"
	RuleActionBlock RuleAction = "BLOCK"
	RuleActionLog   RuleAction = "LOG"
)

// EventAction is the disposition the firewall reported for a single flow.
// It is wider than RuleAction: observed traffic can also be dropped silently
// or rejected with a response.
type EventAction string

const (
	EventActionAllow  EventAction = "ALLOW"
	EventActionBlock  EventAction = "BLOCK"
	EventActionDrop   EventAction = "DROP"
	EventActionReject EventAction = "REJECT"
)

// Severity is the urgency level attached to events and alerts.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// AlertStatus is the triage state of an alert.
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "New"
	AlertStatusAcknowledged AlertStatus = "Acknowledged"
	AlertStatusResolved     AlertStatus = "Resolved"
)

// Rule is one firewall rule. IDs are integers assigned monotonically by the
// store and are unique across the live rule set; Priority is assigned as
// count+1 on creation and need not be unique.
type Rule struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	SourceIP     string     `json:"sourceIP"` // CIDR-like specifier, free text
	DestIP       string     `json:"destIP"`
	Port         string     `json:"port"`
	Protocol     Protocol   `json:"protocol"`
	Action       RuleAction `json:"action"`
	Priority     int        `json:"priority"`
	Enabled      bool       `json:"enabled"`
	Hits         int        `json:"hits"`
	LastModified time.Time  `json:"lastModified"`
}

// Event is one observed firewall flow. Events are immutable once created and
// live in a bounded FIFO log.
//
// Protocol is a free string rather than the rule Protocol enum: telemetry
// reports application protocols (DNS, TLS, SSH) that rules never match on.
type Event struct {
	ID         string      `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	SourceIP   string      `json:"sourceIP"`
	DestIP     string      `json:"destIP"`
	SourcePort int         `json:"sourcePort"`
	DestPort   int         `json:"destPort"`
	Protocol   string      `json:"protocol"`
	Action     EventAction `json:"action"`
	Severity   Severity    `json:"severity"`
	Bytes      int         `json:"bytes"`
	Packets    int         `json:"packets"`
	Country    string      `json:"country"`
	RuleName   string      `json:"ruleName"`
}

// Alert is one security incident raised from the event stream. Alerts live in
// a bounded FIFO log and are mutated in place only through status changes.
type Alert struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      string      `json:"type"`
	Severity  Severity    `json:"severity"`
	SourceIP  string      `json:"sourceIP"`
	DestIP    string      `json:"destIP"`
	Message   string      `json:"message"`
	Status    AlertStatus `json:"status"`
}

// HourPoint is one hourly traffic sample in a TrafficMetrics snapshot.
type HourPoint struct {
	Time     string `json:"time"` // "HH:00"
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// ProtocolDistribution is the relative share of traffic per protocol family.
type ProtocolDistribution struct {
	TCP   int `json:"tcp"`
	UDP   int `json:"udp"`
	ICMP  int `json:"icmp"`
	Other int `json:"other"`
}

// IPTraffic ranks one source address by traffic volume.
type IPTraffic struct {
	IP      string `json:"ip"`
	Traffic int    `json:"traffic"`
}

// PortTraffic ranks one destination port by traffic volume.
type PortTraffic struct {
	Port    int `json:"port"`
	Traffic int `json:"traffic"`
}

// TrafficMetrics is the derived traffic snapshot, recomputed wholesale on each
// metrics tick and replaced as a value, never mutated in place.
type TrafficMetrics struct {
	Hours                []HourPoint          `json:"hours"`
	ProtocolDistribution ProtocolDistribution `json:"protocolDistribution"`
	TopSourceIPs         []IPTraffic          `json:"topSourceIPs"`
	TopPorts             []PortTraffic        `json:"topPorts"`
}

// Statistics is the derived aggregate-counter snapshot, recomputed wholesale
// on each statistics tick.
type Statistics struct {
	TotalEvents24h     int `json:"totalEvents24h"`
	BlockedConnections int `json:"blockedConnections"`
	AllowedConnections int `json:"allowedConnections"`
	ActiveRules        int `json:"activeRules"`
	CriticalAlerts     int `json:"criticalAlerts"`
	HighAlerts         int `json:"highAlerts"`
}
