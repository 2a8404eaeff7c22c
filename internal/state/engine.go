package state

import "time"

// This file is the mutation engine: the command-shaped operations the hub
// applies to the store. Each operation either returns the applied delta or
// reports a no-op. Mutations on unknown identities are silently absorbed
// (no error, no delta), which callers rely on to suppress broadcasts.

// RuleFields carries the caller-supplied fields of an add-rule command.
type RuleFields struct {
	Name     string
	SourceIP string
	DestIP   string
	Port     string
	Protocol Protocol
	Action   RuleAction
}

// RulePatch carries the optional fields of an update-rule command. Nil fields
// are left untouched on merge.
type RulePatch struct {
	Name     *string
	SourceIP *string
	DestIP   *string
	Port     *string
	Protocol *Protocol
	Action   *RuleAction
	Priority *int
	Enabled  *bool
}

// AddRule creates a rule from fields and appends it to the rule set. The new
// rule gets the next monotonic ID, priority count+1, enabled=true, zero hits,
// and a fresh LastModified stamp. AddRule always succeeds.
func (s *Store) AddRule(fields RuleFields, now time.Time) Rule {
	r := Rule{
		ID:           s.nextID,
		Name:         fields.Name,
		SourceIP:     fields.SourceIP,
		DestIP:       fields.DestIP,
		Port:         fields.Port,
		Protocol:     fields.Protocol,
		Action:       fields.Action,
		Priority:     len(s.rules) + 1,
		Enabled:      true,
		Hits:         0,
		LastModified: now,
	}
	s.nextID++
	s.rules = append(s.rules, r)
	return r
}

// UpdateRule merges patch over the rule with the given id and re-stamps
// LastModified. The second return is false when no rule matches, in which
// case the store is unchanged.
func (s *Store) UpdateRule(id int, patch RulePatch, now time.Time) (Rule, bool) {
	for i := range s.rules {
		if s.rules[i].ID != id {
			continue
		}
		r := &s.rules[i]
		if patch.Name != nil {
			r.Name = *patch.Name
		}
		if patch.SourceIP != nil {
			r.SourceIP = *patch.SourceIP
		}
		if patch.DestIP != nil {
			r.DestIP = *patch.DestIP
		}
		if patch.Port != nil {
			r.Port = *patch.Port
		}
		if patch.Protocol != nil {
			r.Protocol = *patch.Protocol
		}
		if patch.Action != nil {
			r.Action = *patch.Action
		}
		if patch.Priority != nil {
			r.Priority = *patch.Priority
		}
		if patch.Enabled != nil {
			r.Enabled = *patch.Enabled
		}
		r.LastModified = now
		return *r, true
	}
	return Rule{}, false
}

// DeleteRule removes the rule with the given id. Deleting an unknown id is
// idempotent; the return reports whether a rule was actually removed.
func (s *Store) DeleteRule(id int) bool {
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleRule flips the enabled flag of the rule with the given id and
// re-stamps LastModified. The second return is false when no rule matches.
func (s *Store) ToggleRule(id int, now time.Time) (Rule, bool) {
	for i := range s.rules {
		if s.rules[i].ID == id {
			s.rules[i].Enabled = !s.rules[i].Enabled
			s.rules[i].LastModified = now
			return s.rules[i], true
		}
	}
	return Rule{}, false
}

// SetAlertStatus sets the status of the alert with the given id. Transitions
// are deliberately unconstrained: any alert can be set to Acknowledged or
// Resolved regardless of its current status, matching the relaxed triage
// policy of the protocol. Returns false when no alert matches.
func (s *Store) SetAlertStatus(id string, status AlertStatus) bool {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Status = status
			return true
		}
	}
	return false
}
