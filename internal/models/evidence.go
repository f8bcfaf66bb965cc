package models

import "time"

// Resolution outcomes for historical incidents.
const (
	ResolvedTruePositive  = "true_positive"
	ResolvedFalsePositive = "false_positive"
	ResolvedInconclusive  = "inconclusive"
)

// HistoricalIncident is a past incident record used for pattern matching.
type HistoricalIncident struct {
	ID         string         `json:"id"`
	Customer   string         `json:"customer"`
	Category   ThreatCategory `json:"category"`
	Severity   Severity       `json:"severity"`
	OccurredAt time.Time      `json:"occurred_at"`
	Resolution string         `json:"resolution"`
	ResolvedAs string         `json:"resolved_as"`
}

// Customer tiers.
const (
	TierStandard   = "standard"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

// CustomerPolicy is the customer-specific security configuration consulted
// by the configuration evaluator and the response planner.
type CustomerPolicy struct {
	Customer            string   `json:"customer"`
	Tier                string   `json:"tier"`
	RateLimitPerMinute  int      `json:"rate_limit_per_minute"`
	GeoRestrictions     []string `json:"geo_restrictions,omitempty"`
	BotSensitivity      string   `json:"bot_sensitivity"`
	AutoBlockEnabled    bool     `json:"auto_block_enabled"`
	AllowlistIPs        []string `json:"allowlist_ips,omitempty"`
	EscalationContacts  []string `json:"escalation_contacts,omitempty"`
}

// Allowlisted reports whether the target address matches an allow-list entry.
// Entries may be exact addresses or prefixes ending in '.'.
func (p CustomerPolicy) Allowlisted(target string) bool {
	for _, entry := range p.AllowlistIPs {
		if entry == "" {
			continue
		}
		if entry == target {
			return true
		}
		if entry[len(entry)-1] == '.' && len(target) >= len(entry) && target[:len(entry)] == entry {
			return true
		}
	}
	return false
}

// InfraEvent is an infrastructure change record (deployment, scaling, outage).
type InfraEvent struct {
	ID               string    `json:"id"`
	Kind             string    `json:"kind"`
	OccurredAt       time.Time `json:"occurred_at"`
	Description      string    `json:"description"`
	AffectedServices []string  `json:"affected_services,omitempty"`
}

// IntelItem is an external threat-intel or news feed item.
type IntelItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}
