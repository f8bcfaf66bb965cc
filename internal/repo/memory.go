package repo

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// MemoryEvidence is a seeded, self-contained evidence source used for local
// development and tests. The same seed always yields the same dataset.
type MemoryEvidence struct {
	mu        sync.RWMutex
	incidents []models.HistoricalIncident
	policies  map[string]models.CustomerPolicy
	infra     []models.InfraEvent
	intel     []models.IntelItem
}

var memoryCustomers = []string{"acme-corp", "globex", "initech", "umbrella", "stark-industries"}

// NewMemoryEvidence builds the seeded dataset. Incident history is anchored
// at the given time so lookbacks behave consistently in tests.
func NewMemoryEvidence(seed int64, anchor time.Time) *MemoryEvidence {
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}
	rng := rand.New(rand.NewSource(seed))

	m := &MemoryEvidence{
		policies: make(map[string]models.CustomerPolicy),
	}

	tiers := []string{models.TierStandard, models.TierPremium, models.TierEnterprise}
	sensitivities := []string{"low", "medium", "high"}
	for i, customer := range memoryCustomers {
		m.policies[customer] = models.CustomerPolicy{
			Customer:           customer,
			Tier:               tiers[i%len(tiers)],
			RateLimitPerMinute: 100 * (1 + rng.Intn(10)),
			BotSensitivity:     sensitivities[rng.Intn(len(sensitivities))],
			AutoBlockEnabled:   rng.Float64() < 0.6,
			AllowlistIPs:       []string{"10.0.0.1", "192.168.1."},
			EscalationContacts: []string{
				fmt.Sprintf("soc-oncall@%s.example", customer),
				fmt.Sprintf("security-lead@%s.example", customer),
			},
		}
	}

	resolutions := []string{
		"blocked at edge",
		"rate limit applied",
		"confirmed benign partner traffic",
		"credentials rotated",
		"escalated to customer",
	}
	severities := []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}
	outcomes := []string{models.ResolvedTruePositive, models.ResolvedFalsePositive, models.ResolvedInconclusive}
	categories := models.Categories()

	for i := 0; i < 60; i++ {
		customer := memoryCustomers[rng.Intn(len(memoryCustomers))]
		category := categories[rng.Intn(len(categories))]
		m.incidents = append(m.incidents, models.HistoricalIncident{
			ID:         fmt.Sprintf("INC-%04d", 1000+i),
			Customer:   customer,
			Category:   category,
			Severity:   severities[rng.Intn(len(severities))],
			OccurredAt: anchor.Add(-time.Duration(1+rng.Intn(45*24)) * time.Hour),
			Resolution: resolutions[rng.Intn(len(resolutions))],
			ResolvedAs: outcomes[rng.Intn(len(outcomes))],
		})
	}
	sort.Slice(m.incidents, func(i, j int) bool {
		return m.incidents[i].OccurredAt.After(m.incidents[j].OccurredAt)
	})

	infraKinds := []struct {
		kind, desc string
		services   []string
	}{
		{"deployment", "Rolled out edge-gateway v2.14.0", []string{"edge-gateway"}},
		{"scaling", "Autoscaled auth-service from 6 to 14 pods", []string{"auth-service"}},
		{"config_change", "Updated WAF ruleset to release 2026-08", []string{"waf"}},
		{"maintenance", "Rotated TLS certificates on api tier", []string{"api"}},
		{"deployment", "Canary release of rate-limiter v1.9.2", []string{"rate-limiter"}},
	}
	for i, ev := range infraKinds {
		m.infra = append(m.infra, models.InfraEvent{
			ID:               fmt.Sprintf("CHG-%03d", 100+i),
			Kind:             ev.kind,
			OccurredAt:       anchor.Add(-time.Duration(10+rng.Intn(170)) * time.Minute),
			Description:      ev.desc,
			AffectedServices: ev.services,
		})
	}
	sort.Slice(m.infra, func(i, j int) bool {
		return m.infra[i].OccurredAt.After(m.infra[j].OccurredAt)
	})

	intelSeed := []struct{ title, summary, source string }{
		{
			"Credential stuffing wave hits fintech APIs",
			"Researchers report a coordinated credential stuffing campaign reusing combolists from a recent breach.",
			"ThreatWire",
		},
		{
			"New residential proxy botnet observed",
			"A proxy network of compromised IoT devices is being rented for ad fraud and account takeover.",
			"NetSec Daily",
		},
		{
			"Search engine crawler IP ranges updated",
			"Major search engines published refreshed crawler IP ranges; verify bot allowlists.",
			"Ops Bulletin",
		},
		{
			"Mobile malware strain targets banking apps",
			"A new Android malware family intercepts device attestation on rooted handsets.",
			"Mobile Threat Lab",
		},
	}
	for i, item := range intelSeed {
		m.intel = append(m.intel, models.IntelItem{
			ID:          fmt.Sprintf("INTEL-%03d", 200+i),
			Title:       item.title,
			Summary:     item.summary,
			Source:      item.source,
			PublishedAt: anchor.Add(-time.Duration(1+rng.Intn(72)) * time.Hour),
		})
	}

	return m
}

// SimilarIncidents returns incidents for the customer and category within the
// window, most recent first.
func (m *MemoryEvidence) SimilarIncidents(_ context.Context, customer string, category models.ThreatCategory, window time.Duration) ([]models.HistoricalIncident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cutoff time.Time
	if len(m.incidents) > 0 && window > 0 {
		cutoff = m.incidents[0].OccurredAt.Add(-window)
	}

	var out []models.HistoricalIncident
	for _, inc := range m.incidents {
		if inc.Customer != customer || inc.Category != category {
			continue
		}
		if !cutoff.IsZero() && inc.OccurredAt.Before(cutoff) {
			continue
		}
		out = append(out, inc)
	}
	return out, nil
}

// CustomerPolicy returns the policy for a known customer or a conservative
// default for unknown ones.
func (m *MemoryEvidence) CustomerPolicy(_ context.Context, customer string) (*models.CustomerPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if policy, ok := m.policies[customer]; ok {
		p := policy
		return &p, nil
	}
	return &models.CustomerPolicy{
		Customer:           customer,
		Tier:               models.TierStandard,
		RateLimitPerMinute: 300,
		BotSensitivity:     "medium",
	}, nil
}

// InfraEventsSince returns infrastructure events at or after the given time.
func (m *MemoryEvidence) InfraEventsSince(_ context.Context, since time.Time) ([]models.InfraEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.InfraEvent
	for _, ev := range m.infra {
		if ev.OccurredAt.Before(since) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// IntelItems returns intel items whose title or summary mentions the category
// or one of the keywords. With no match the full feed is returned so the
// context evaluator always has something to reason over.
func (m *MemoryEvidence) IntelItems(_ context.Context, category models.ThreatCategory, keywords []string) ([]models.IntelItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := append([]string{categoryTerm(category)}, keywords...)

	var out []models.IntelItem
	for _, item := range m.intel {
		text := strings.ToLower(item.Title + " " + item.Summary)
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(term)) {
				out = append(out, item)
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, m.intel...)
	}
	return out, nil
}

// SetPolicy replaces a customer policy. Used by tests and the demo dataset.
func (m *MemoryEvidence) SetPolicy(policy models.CustomerPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.Customer] = policy
}

// AddIncident prepends an incident to the history.
func (m *MemoryEvidence) AddIncident(inc models.HistoricalIncident) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents = append([]models.HistoricalIncident{inc}, m.incidents...)
}

func categoryTerm(category models.ThreatCategory) string {
	switch category {
	case models.CategoryBotTraffic:
		return "bot"
	case models.CategoryCredentialStuffing:
		return "credential"
	case models.CategoryProxyNetwork:
		return "proxy"
	case models.CategoryDeviceCompromise:
		return "malware"
	case models.CategoryRateLimitBreach:
		return "rate"
	default:
		return string(category)
	}
}
