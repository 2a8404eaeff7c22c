// Package protocol defines the wire catalogue of the dashboard WebSocket:
// one tagged variant per named message, carried in a {"type","data"} JSON
// envelope. Inbound frames are decoded and validated here, at the transport
// boundary, so the hub only ever sees well-formed typed commands.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/firewatch/dashboard/internal/state"
)

// Inbound message types (client → server).
const (
	TypeAuthenticate       = "authenticate"
	TypeRequestInitialData = "request-initial-data"
	TypeSubscribeEvents    = "subscribe-events"
	TypeRequestRules       = "request-rules"
	TypeAddRule            = "add-rule"
	TypeUpdateRule         = "update-rule"
	TypeDeleteRule         = "delete-rule"
	TypeToggleRule         = "toggle-rule"
	TypeAcknowledgeAlert   = "acknowledge-alert"
	TypeResolveAlert       = "resolve-alert"
)

// Outbound message types (server → client).
const (
	TypeAuthenticated     = "authenticated"
	TypeInitialRules      = "initial-rules"
	TypeInitialEvents     = "initial-events"
	TypeInitialAlerts     = "initial-alerts"
	TypeStatistics        = "statistics"
	TypeTrafficMetrics    = "traffic-metrics"
	TypeRulesList         = "rules-list"
	TypeRulesUpdated      = "rules-updated"
	TypeRuleAdded         = "rule-added"
	TypeRuleUpdated       = "rule-updated"
	TypeRuleDeleted       = "rule-deleted"
	TypeNewEvent          = "new-event"
	TypeNewAlert          = "new-alert"
	TypeAlertAcknowledged = "alert-acknowledged"
	TypeAlertResolved     = "alert-resolved"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is one decoded client command.
type Inbound interface {
	// Kind returns the message type tag the command was decoded from.
	Kind() string
}

// Authenticate carries the session-auth token.
type Authenticate struct {
	Token string `json:"token"`
}

// RequestInitialData asks for the full bootstrap snapshot.
type RequestInitialData struct{}

// SubscribeEvents marks the session as an event-stream subscriber.
type SubscribeEvents struct{}

// RequestRules asks for the current rule set.
type RequestRules struct{}

// AddRule creates a firewall rule from the given fields.
type AddRule struct {
	Name     string `json:"name"`
	SourceIP string `json:"sourceIP"`
	DestIP   string `json:"destIP"`
	Port     string `json:"port"`
	Protocol string `json:"protocol"`
	Action   string `json:"action"`
}

// UpdateRule patches an existing rule. Absent fields are left untouched.
type UpdateRule struct {
	ID       int     `json:"id"`
	Name     *string `json:"name,omitempty"`
	SourceIP *string `json:"sourceIP,omitempty"`
	DestIP   *string `json:"destIP,omitempty"`
	Port     *string `json:"port,omitempty"`
	Protocol *string `json:"protocol,omitempty"`
	Action   *string `json:"action,omitempty"`
	Priority *int    `json:"priority,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// DeleteRule removes a rule by id.
type DeleteRule struct {
	ID int `json:"id"`
}

// ToggleRule flips a rule's enabled flag.
type ToggleRule struct {
	ID int `json:"id"`
}

// AcknowledgeAlert marks an alert Acknowledged.
type AcknowledgeAlert struct {
	ID string `json:"id"`
}

// ResolveAlert marks an alert Resolved.
type ResolveAlert struct {
	ID string `json:"id"`
}

func (Authenticate) Kind() string       { return TypeAuthenticate }
func (RequestInitialData) Kind() string { return TypeRequestInitialData }
func (SubscribeEvents) Kind() string    { return TypeSubscribeEvents }
func (RequestRules) Kind() string       { return TypeRequestRules }
func (AddRule) Kind() string            { return TypeAddRule }
func (UpdateRule) Kind() string         { return TypeUpdateRule }
func (DeleteRule) Kind() string         { return TypeDeleteRule }
func (ToggleRule) Kind() string         { return TypeToggleRule }
func (AcknowledgeAlert) Kind() string   { return TypeAcknowledgeAlert }
func (ResolveAlert) Kind() string       { return TypeResolveAlert }

// AuthResult is the payload of an "authenticated" acknowledgment.
type AuthResult struct {
	Success bool `json:"success"`
}

// RuleID is the payload of a "rule-deleted" acknowledgment.
type RuleID struct {
	ID int `json:"id"`
}

// AlertID is the payload of "alert-acknowledged" and "alert-resolved"
// broadcasts.
type AlertID struct {
	ID string `json:"id"`
}

// DecodeInbound parses one raw frame into its typed variant. It rejects
// frames with an unknown type tag, malformed data, or field values outside
// the protocol's enums.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("protocol: malformed envelope: %w", err)
	}

	data := env.Data
	if data == nil {
		data = json.RawMessage("{}")
	}

	switch env.Type {
	case TypeAuthenticate:
		var m Authenticate
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.Token == "" {
			return nil, fmt.Errorf("protocol: %s: token is required", env.Type)
		}
		return m, nil

	case TypeRequestInitialData:
		return RequestInitialData{}, nil

	case TypeSubscribeEvents:
		return SubscribeEvents{}, nil

	case TypeRequestRules:
		return RequestRules{}, nil

	case TypeAddRule:
		var m AddRule
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.Name == "" {
			return nil, fmt.Errorf("protocol: %s: name is required", env.Type)
		}
		if !validProtocol(m.Protocol) {
			return nil, fmt.Errorf("protocol: %s: protocol %q must be one of TCP, UDP, ICMP, ANY", env.Type, m.Protocol)
		}
		if !validRuleAction(m.Action) {
			return nil, fmt.Errorf("protocol: %s: action %q must be one of ALLOW, BLOCK, LOG", env.Type, m.Action)
		}
		return m, nil

	case TypeUpdateRule:
		var m UpdateRule
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.ID <= 0 {
			return nil, fmt.Errorf("protocol: %s: id is required", env.Type)
		}
		if m.Protocol != nil && !validProtocol(*m.Protocol) {
			return nil, fmt.Errorf("protocol: %s: protocol %q must be one of TCP, UDP, ICMP, ANY", env.Type, *m.Protocol)
		}
		if m.Action != nil && !validRuleAction(*m.Action) {
			return nil, fmt.Errorf("protocol: %s: action %q must be one of ALLOW, BLOCK, LOG", env.Type, *m.Action)
		}
		return m, nil

	case TypeDeleteRule:
		var m DeleteRule
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.ID <= 0 {
			return nil, fmt.Errorf("protocol: %s: id is required", env.Type)
		}
		return m, nil

	case TypeToggleRule:
		var m ToggleRule
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.ID <= 0 {
			return nil, fmt.Errorf("protocol: %s: id is required", env.Type)
		}
		return m, nil

	case TypeAcknowledgeAlert:
		var m AcknowledgeAlert
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.ID == "" {
			return nil, fmt.Errorf("protocol: %s: id is required", env.Type)
		}
		return m, nil

	case TypeResolveAlert:
		var m ResolveAlert
		if err := unmarshalData(env.Type, data, &m); err != nil {
			return nil, err
		}
		if m.ID == "" {
			return nil, fmt.Errorf("protocol: %s: id is required", env.Type)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("protocol: unknown message type %q", env.Type)
	}
}

// Encode marshals one outbound message into its envelope frame.
func Encode(msgType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s data: %w", msgType, err)
	}
	raw, err := json.Marshal(Envelope{Type: msgType, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s envelope: %w", msgType, err)
	}
	return raw, nil
}

func unmarshalData(msgType string, data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("protocol: malformed %s data: %w", msgType, err)
	}
	return nil
}

func validProtocol(p string) bool {
	switch state.Protocol(p) {
	case state.ProtocolTCP, state.ProtocolUDP, state.ProtocolICMP, state.ProtocolAny:
		return true
	}
	return false
}

func validRuleAction(a string) bool {
	switch state.RuleAction(a) {
	case state.RuleActionAllow, state.RuleActionBlock, state.RuleActionLog:
		return true
	}
	return false
}
