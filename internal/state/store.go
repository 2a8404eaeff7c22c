package state

// DefaultEventCapacity and DefaultAlertCapacity bound the two append-only
// logs. When a log is full the oldest entries are evicted first.
const (
	DefaultEventCapacity = 500
	DefaultAlertCapacity = 100
)

// Store holds the live dashboard state. Create one with NewStore; the zero
// value is not usable.
type Store struct {
	rules  []Rule
	nextID int

	events   []Event
	eventCap int

	alerts   []Alert
	alertCap int

	metrics    TrafficMetrics
	statistics Statistics
}

// Options configures a Store. Zero-value fields fall back to the defaults.
type Options struct {
	EventCapacity int
	AlertCapacity int
}

// NewStore creates an empty Store with the given capacities.
func NewStore(opts Options) *Store {
	if opts.EventCapacity <= 0 {
		opts.EventCapacity = DefaultEventCapacity
	}
	if opts.AlertCapacity <= 0 {
		opts.AlertCapacity = DefaultAlertCapacity
	}
	return &Store{
		nextID:   1,
		eventCap: opts.EventCapacity,
		alertCap: opts.AlertCapacity,
	}
}

// SeedRules replaces the rule set with rules and advances the ID counter past
// the highest seeded ID. Intended for startup only, before any session is
// attached.
func (s *Store) SeedRules(rules []Rule) {
	s.rules = append(s.rules[:0], rules...)
	s.nextID = 1
	for _, r := range rules {
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
	}
}

// Rules returns a copy of the current rule set in priority/insertion order.
func (s *Store) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// RuleCount returns the number of live rules.
func (s *Store) RuleCount() int { return len(s.rules) }

// ActiveRuleCount returns the number of enabled rules.
func (s *Store) ActiveRuleCount() int {
	n := 0
	for _, r := range s.rules {
		if r.Enabled {
			n++
		}
	}
	return n
}

// AppendEvent appends ev to the event log, evicting the oldest entries when
// the log exceeds its capacity.
func (s *Store) AppendEvent(ev Event) {
	s.events = append(s.events, ev)
	if n := len(s.events); n > s.eventCap {
		s.events = append(s.events[:0], s.events[n-s.eventCap:]...)
	}
}

// RecentEvents returns a copy of the newest n events in arrival order. If n
// exceeds the log length the whole log is returned.
func (s *Store) RecentEvents(n int) []Event {
	if n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, n)
	copy(out, s.events[len(s.events)-n:])
	return out
}

// EventCount returns the current event log length.
func (s *Store) EventCount() int { return len(s.events) }

// AppendAlert appends a to the alert log, evicting the oldest entries when
// the log exceeds its capacity.
func (s *Store) AppendAlert(a Alert) {
	s.alerts = append(s.alerts, a)
	if n := len(s.alerts); n > s.alertCap {
		s.alerts = append(s.alerts[:0], s.alerts[n-s.alertCap:]...)
	}
}

// RecentAlerts returns a copy of the newest n alerts in arrival order.
func (s *Store) RecentAlerts(n int) []Alert {
	if n > len(s.alerts) {
		n = len(s.alerts)
	}
	out := make([]Alert, n)
	copy(out, s.alerts[len(s.alerts)-n:])
	return out
}

// AlertCount returns the current alert log length.
func (s *Store) AlertCount() int { return len(s.alerts) }

// AlertSeverityCounts returns the number of live alerts at Critical and High
// severity. Used to derive the statistics snapshot.
func (s *Store) AlertSeverityCounts() (critical, high int) {
	for _, a := range s.alerts {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityHigh:
			high++
		}
	}
	return critical, high
}

// SetMetrics replaces the latest traffic-metrics snapshot.
func (s *Store) SetMetrics(m TrafficMetrics) { s.metrics = m }

// Metrics returns the latest traffic-metrics snapshot.
func (s *Store) Metrics() TrafficMetrics { return s.metrics }

// SetStatistics replaces the latest statistics snapshot.
func (s *Store) SetStatistics(st Statistics) { s.statistics = st }

// Statistics returns the latest statistics snapshot.
func (s *Store) Statistics() Statistics { return s.statistics }
