package engine

import (
	"fmt"
	"sort"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// SLA minutes per severity before any tier discount.
var slaBySeverity = map[models.Severity]int{
	models.SeverityCritical: 15,
	models.SeverityHigh:     30,
	models.SeverityMedium:   60,
	models.SeverityLow:      240,
}

// Premium and enterprise customers get a faster SLA. Rounded down, never
// below one minute.
const premiumSLADiscountPercent = 25

var escalationTiers = []string{"soc_analyst", "soc_lead", "security_manager", "ciso"}

type templateKey struct {
	category models.ThreatCategory
	severity models.Severity
}

type planTemplate struct {
	primary     models.ResponseAction
	secondaries []models.ResponseAction
	notes       string
}

// Planner maps (category, severity) to a response template and adjusts it
// with the false-positive score and the customer policy. The template table
// is validated at construction so missing combinations never surface at
// analysis time.
type Planner struct {
	specific map[templateKey]planTemplate
	fallback map[models.Severity]planTemplate
}

// NewPlanner builds the planner and verifies every (category, severity) pair
// resolves to a template. A gap is a design-time error, returned as
// ErrTemplateMissing.
func NewPlanner() (*Planner, error) {
	p := &Planner{
		specific: specificTemplates(),
		fallback: fallbackTemplates(),
	}
	for _, category := range models.Categories() {
		for _, severity := range []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical} {
			if _, ok := p.specific[templateKey{category, severity}]; ok {
				continue
			}
			if _, ok := p.fallback[severity]; !ok {
				return nil, fmt.Errorf("%w: no template for %s/%s", ErrTemplateMissing, category, severity)
			}
		}
	}
	return p, nil
}

// Plan produces the prioritized response plan for one analyzed signal.
func (p *Planner) Plan(signal models.ThreatSignal, severity models.Severity, fp models.FalsePositiveAssessment, policy models.CustomerPolicy) (models.ResponsePlan, error) {
	tmpl, ok := p.specific[templateKey{signal.Category, severity}]
	if !ok {
		tmpl, ok = p.fallback[severity]
		if !ok {
			return models.ResponsePlan{}, fmt.Errorf("%w: %s/%s", ErrTemplateMissing, signal.Category, severity)
		}
	}

	primary := fillTarget(tmpl.primary, signal)
	secondaries := make([]models.ResponseAction, 0, len(tmpl.secondaries))
	for _, action := range tmpl.secondaries {
		secondaries = append(secondaries, fillTarget(action, signal))
	}
	notes := tmpl.notes

	// False-positive adjustment before the policy gate; the gate always has
	// the final word.
	switch {
	case fp.Score > 0.7:
		primary = models.ResponseAction{
			Kind:            models.ActionMonitor,
			Urgency:         models.UrgencyLow,
			Target:          primary.Target,
			Reason:          fmt.Sprintf("downgraded to monitoring: false-positive score %.2f", fp.Score),
			AutoExecutable:  false,
			EstimatedImpact: "none",
			Confidence:      fp.Confidence,
		}
		notes = appendNote(notes, "primary downgraded on high false-positive likelihood")
	case fp.Score < 0.3:
		primary.Urgency = primary.Urgency.Escalate()
		notes = appendNote(notes, "urgency raised on low false-positive likelihood")
	}

	primary = applyPolicyGate(primary, policy)
	for i := range secondaries {
		secondaries[i] = applyPolicyGate(secondaries[i], policy)
	}

	sort.SliceStable(secondaries, func(i, j int) bool {
		if secondaries[i].Urgency.Rank() != secondaries[j].Urgency.Rank() {
			return secondaries[i].Urgency.Rank() > secondaries[j].Urgency.Rank()
		}
		return secondaries[i].Confidence > secondaries[j].Confidence
	})

	sla := slaBySeverity[severity]
	if policy.Tier == models.TierPremium || policy.Tier == models.TierEnterprise {
		sla = sla * (100 - premiumSLADiscountPercent) / 100
		if sla < 1 {
			sla = 1
		}
	}

	return models.ResponsePlan{
		Primary:           primary,
		Secondary:         secondaries,
		EscalationPath:    escalationPath(severity, policy),
		SLAMinutes:        sla,
		AutoEscalateAfter: sla * 2,
		Confidence:        (primary.Confidence + fp.Confidence) / 2,
		Notes:             notes,
	}, nil
}

// applyPolicyGate enforces the customer policy on one action. Allow-listed
// targets are never blocked; without auto-block, blocking needs sign-off.
func applyPolicyGate(action models.ResponseAction, policy models.CustomerPolicy) models.ResponseAction {
	if action.Kind.Blocking() && policy.Allowlisted(action.Target) {
		return models.ResponseAction{
			Kind:            models.ActionMonitor,
			Urgency:         models.UrgencyNormal,
			Target:          action.Target,
			Reason:          fmt.Sprintf("target %s is allow-listed; blocking replaced with monitoring", action.Target),
			AutoExecutable:  false,
			EstimatedImpact: "none",
			Confidence:      action.Confidence,
		}
	}
	if action.Kind.Blocking() && !policy.AutoBlockEnabled {
		action.RequiresApproval = true
		action.AutoExecutable = false
	}
	return action
}

func escalationPath(severity models.Severity, policy models.CustomerPolicy) []string {
	count := severity.Rank() + 1
	pool := append(append([]string{}, policy.EscalationContacts...), escalationTiers...)
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count]
}

func fillTarget(action models.ResponseAction, signal models.ThreatSignal) models.ResponseAction {
	switch action.Kind {
	case models.ActionRateLimit, models.ActionChallenge:
		if signal.ClientID != "" {
			action.Target = signal.ClientID
			return action
		}
		action.Target = signal.SourceIP
	case models.ActionEscalate:
		action.Target = signal.Customer
	default:
		action.Target = signal.SourceIP
	}
	return action
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + "; " + extra
}

func specificTemplates() map[templateKey]planTemplate {
	return map[templateKey]planTemplate{
		{models.CategoryCredentialStuffing, models.SeverityHigh}: {
			primary: models.ResponseAction{
				Kind: models.ActionBlockIP, Urgency: models.UrgencyUrgent,
				Reason: "active credential stuffing from a single source", AutoExecutable: true,
				EstimatedImpact: "blocks one source address", Confidence: 0.85,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionChallenge, Urgency: models.UrgencyUrgent, Reason: "force step-up auth on affected accounts", EstimatedImpact: "friction for targeted accounts", Confidence: 0.80},
				{Kind: models.ActionEscalate, Urgency: models.UrgencyNormal, Reason: "notify customer of credential attack", EstimatedImpact: "none", Confidence: 0.75},
			},
			notes: "rotate credentials for any account with a successful login from the source",
		},
		{models.CategoryCredentialStuffing, models.SeverityCritical}: {
			primary: models.ResponseAction{
				Kind: models.ActionBlockIP, Urgency: models.UrgencyImmediate,
				Reason: "large-scale credential stuffing in progress", AutoExecutable: true,
				EstimatedImpact: "blocks one source address", Confidence: 0.90,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionChallenge, Urgency: models.UrgencyImmediate, Reason: "force step-up auth tenant-wide", EstimatedImpact: "friction for all logins", Confidence: 0.85},
				{Kind: models.ActionEscalate, Urgency: models.UrgencyUrgent, Reason: "page customer security contact", EstimatedImpact: "none", Confidence: 0.85},
			},
		},
		{models.CategoryBotTraffic, models.SeverityLow}: {
			primary: models.ResponseAction{
				Kind: models.ActionMonitor, Urgency: models.UrgencyLow,
				Reason: "low-volume bot traffic within tolerances", AutoExecutable: true,
				EstimatedImpact: "none", Confidence: 0.70,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionRateLimit, Urgency: models.UrgencyLow, Reason: "cap the source if volume grows", EstimatedImpact: "throttles one client", Confidence: 0.60},
			},
		},
		{models.CategoryBotTraffic, models.SeverityMedium}: {
			primary: models.ResponseAction{
				Kind: models.ActionChallenge, Urgency: models.UrgencyNormal,
				Reason: "bot-like traffic above baseline", AutoExecutable: true,
				EstimatedImpact: "friction for the suspect client", Confidence: 0.75,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionRateLimit, Urgency: models.UrgencyNormal, Reason: "throttle while challenge results accrue", EstimatedImpact: "throttles one client", Confidence: 0.70},
			},
		},
		{models.CategoryDeviceCompromise, models.SeverityCritical}: {
			primary: models.ResponseAction{
				Kind: models.ActionQuarantine, Urgency: models.UrgencyImmediate,
				Reason: "device shows signs of compromise", AutoExecutable: false, RequiresApproval: true,
				EstimatedImpact: "isolates the affected device", Confidence: 0.90,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionBlockIP, Urgency: models.UrgencyImmediate, Reason: "cut the device's current session source", EstimatedImpact: "blocks one source address", Confidence: 0.85},
				{Kind: models.ActionEscalate, Urgency: models.UrgencyImmediate, Reason: "page customer security contact", EstimatedImpact: "none", Confidence: 0.90},
			},
		},
		{models.CategoryProxyNetwork, models.SeverityMedium}: {
			primary: models.ResponseAction{
				Kind: models.ActionChallenge, Urgency: models.UrgencyNormal,
				Reason: "traffic routed through a proxy network", AutoExecutable: true,
				EstimatedImpact: "friction for proxied sessions", Confidence: 0.70,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionMonitor, Urgency: models.UrgencyNormal, Reason: "watch for expansion of the proxy pool", EstimatedImpact: "none", Confidence: 0.65},
			},
		},
		{models.CategoryRateLimitBreach, models.SeverityMedium}: {
			primary: models.ResponseAction{
				Kind: models.ActionRateLimit, Urgency: models.UrgencyUrgent,
				Reason: "configured rate limit exceeded", AutoExecutable: true,
				EstimatedImpact: "throttles one client", Confidence: 0.85,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionMonitor, Urgency: models.UrgencyNormal, Reason: "verify throttling restores normal volume", EstimatedImpact: "none", Confidence: 0.75},
			},
		},
		{models.CategoryGeoAnomaly, models.SeverityMedium}: {
			primary: models.ResponseAction{
				Kind: models.ActionChallenge, Urgency: models.UrgencyNormal,
				Reason: "access from an unusual location", AutoExecutable: true,
				EstimatedImpact: "friction for the session", Confidence: 0.70,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionEscalate, Urgency: models.UrgencyLow, Reason: "flag for account-owner confirmation", EstimatedImpact: "none", Confidence: 0.60},
			},
		},
	}
}

func fallbackTemplates() map[models.Severity]planTemplate {
	return map[models.Severity]planTemplate{
		models.SeverityCritical: {
			primary: models.ResponseAction{
				Kind: models.ActionBlockIP, Urgency: models.UrgencyImmediate,
				Reason: "critical threat requires immediate containment", AutoExecutable: true,
				EstimatedImpact: "blocks one source address", Confidence: 0.80,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionEscalate, Urgency: models.UrgencyImmediate, Reason: "page customer security contact", EstimatedImpact: "none", Confidence: 0.85},
				{Kind: models.ActionRateLimit, Urgency: models.UrgencyUrgent, Reason: "throttle residual traffic", EstimatedImpact: "throttles one client", Confidence: 0.70},
			},
		},
		models.SeverityHigh: {
			primary: models.ResponseAction{
				Kind: models.ActionBlockIP, Urgency: models.UrgencyUrgent,
				Reason: "high-severity threat from a single source", AutoExecutable: true,
				EstimatedImpact: "blocks one source address", Confidence: 0.75,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionRateLimit, Urgency: models.UrgencyUrgent, Reason: "throttle while the block propagates", EstimatedImpact: "throttles one client", Confidence: 0.70},
				{Kind: models.ActionMonitor, Urgency: models.UrgencyNormal, Reason: "watch for source rotation", EstimatedImpact: "none", Confidence: 0.65},
			},
		},
		models.SeverityMedium: {
			primary: models.ResponseAction{
				Kind: models.ActionRateLimit, Urgency: models.UrgencyNormal,
				Reason: "moderate threat; throttle and observe", AutoExecutable: true,
				EstimatedImpact: "throttles one client", Confidence: 0.70,
			},
			secondaries: []models.ResponseAction{
				{Kind: models.ActionMonitor, Urgency: models.UrgencyNormal, Reason: "observe for escalation", EstimatedImpact: "none", Confidence: 0.65},
			},
		},
		models.SeverityLow: {
			primary: models.ResponseAction{
				Kind: models.ActionMonitor, Urgency: models.UrgencyLow,
				Reason: "low-severity signal; observation only", AutoExecutable: true,
				EstimatedImpact: "none", Confidence: 0.65,
			},
		},
	}
}
