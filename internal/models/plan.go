package models

// ActionKind enumerates response action types.
type ActionKind string

const (
	ActionBlockIP    ActionKind = "block_ip"
	ActionRateLimit  ActionKind = "rate_limit"
	ActionChallenge  ActionKind = "challenge"
	ActionWhitelist  ActionKind = "whitelist"
	ActionMonitor    ActionKind = "monitor"
	ActionEscalate   ActionKind = "escalate"
	ActionQuarantine ActionKind = "quarantine"
)

// Blocking reports whether the action denies traffic outright. Blocking
// actions are subject to the customer auto-block policy gate.
func (k ActionKind) Blocking() bool {
	return k == ActionBlockIP || k == ActionQuarantine
}

// Urgency ranks how quickly an action should be taken.
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyNormal    Urgency = "normal"
	UrgencyLow       Urgency = "low"
)

// Rank orders urgencies for sorting; higher means more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyImmediate:
		return 3
	case UrgencyUrgent:
		return 2
	case UrgencyNormal:
		return 1
	default:
		return 0
	}
}

// Escalate returns the urgency one tier closer to immediate.
func (u Urgency) Escalate() Urgency {
	switch u {
	case UrgencyLow:
		return UrgencyNormal
	case UrgencyNormal:
		return UrgencyUrgent
	default:
		return UrgencyImmediate
	}
}

// ResponseAction is a single recommended remediation step. The pipeline only
// recommends; execution is the caller's concern.
type ResponseAction struct {
	Kind             ActionKind     `json:"kind"`
	Urgency          Urgency        `json:"urgency"`
	Target           string         `json:"target"`
	Reason           string         `json:"reason"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	AutoExecutable   bool           `json:"auto_executable"`
	RequiresApproval bool           `json:"requires_approval"`
	EstimatedImpact  string         `json:"estimated_impact"`
	Confidence       float64        `json:"confidence"`
}

// ResponsePlan is the prioritized action plan for a signal: exactly one
// primary action, ordered secondaries, an escalation contact path and an SLA.
type ResponsePlan struct {
	Primary           ResponseAction   `json:"primary"`
	Secondary         []ResponseAction `json:"secondary,omitempty"`
	EscalationPath    []string         `json:"escalation_path"`
	SLAMinutes        int              `json:"sla_minutes"`
	AutoEscalateAfter int              `json:"auto_escalate_after_minutes"`
	Confidence        float64          `json:"confidence"`
	Notes             string           `json:"notes,omitempty"`
}
