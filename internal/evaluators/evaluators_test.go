package evaluators

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

var anchor = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func signalWith(category models.ThreatCategory, count int) models.ThreatSignal {
	return models.ThreatSignal{
		ID:           "sig-test",
		Category:     category,
		Customer:     "acme-corp",
		SourceIP:     "203.0.113.10",
		RequestCount: count,
		Window:       5 * time.Minute,
		DetectedAt:   anchor,
	}
}

func evidenceWith(incidents []models.HistoricalIncident, policy *models.CustomerPolicy) repo.Evidence {
	return repo.Evidence{
		SimilarIncidents: incidents,
		Policy:           policy,
		Lookups: []repo.LookupRecord{
			{Name: repo.LookupIncidents, Count: len(incidents)},
			{Name: repo.LookupPolicy},
			{Name: repo.LookupInfra},
			{Name: repo.LookupIntel},
		},
	}
}

func TestAllReturnsFiveInDispatchOrder(t *testing.T) {
	evals := All()
	want := models.EvaluatorNames()
	if len(evals) != len(want) {
		t.Fatalf("expected %d evaluators, got %d", len(want), len(evals))
	}
	for i, e := range evals {
		if e.Name() != want[i] {
			t.Errorf("evaluator %d = %s, want %s", i, e.Name(), want[i])
		}
	}
}

func TestHistoricalLeansBenignWithFalsePositiveHistory(t *testing.T) {
	incidents := []models.HistoricalIncident{
		{ID: "INC-1", ResolvedAs: models.ResolvedFalsePositive},
		{ID: "INC-2", ResolvedAs: models.ResolvedFalsePositive},
		{ID: "INC-3", ResolvedAs: models.ResolvedTruePositive},
	}
	f, err := HistoricalEvaluator{}.Evaluate(context.Background(), signalWith(models.CategoryBotTraffic, 100), evidenceWith(incidents, nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !strings.Contains(f.Summary, "benign") {
		t.Errorf("summary %q should lean benign", f.Summary)
	}
	if f.Confidence < 0.70 || f.Confidence > 0.90 {
		t.Errorf("confidence %.2f outside the historical range", f.Confidence)
	}
}

func TestHistoricalDegradesWhenLookupFailed(t *testing.T) {
	ev := repo.Evidence{Lookups: []repo.LookupRecord{{Name: repo.LookupIncidents, Failed: true}}}
	if _, err := (HistoricalEvaluator{}).Evaluate(context.Background(), signalWith(models.CategoryBotTraffic, 100), ev); err == nil {
		t.Fatal("expected error when incident lookup failed")
	}
}

func TestConfigurationFlagsRateLimitBreach(t *testing.T) {
	policy := &models.CustomerPolicy{Customer: "acme-corp", Tier: models.TierStandard, RateLimitPerMinute: 50}
	f, err := ConfigurationEvaluator{}.Evaluate(context.Background(), signalWith(models.CategoryRateLimitBreach, 600), evidenceWith(nil, policy))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !strings.Contains(f.Summary, "exceeds") {
		t.Errorf("summary %q should flag the exceeded limit", f.Summary)
	}
	if f.Confidence != 0.95 {
		t.Errorf("confidence = %.2f, want 0.95 for a clear breach", f.Confidence)
	}
}

func TestConfigurationRequiresPolicy(t *testing.T) {
	if _, err := (ConfigurationEvaluator{}).Evaluate(context.Background(), signalWith(models.CategoryBotTraffic, 10), repo.Evidence{}); err == nil {
		t.Fatal("expected error without a policy")
	}
}

func TestInfrastructureCorrelatesDeployments(t *testing.T) {
	ev := evidenceWith(nil, nil)
	ev.InfraEvents = []models.InfraEvent{
		{ID: "CHG-1", Kind: "deployment", OccurredAt: anchor.Add(-20 * time.Minute), Description: "edge rollout"},
	}
	f, err := InfrastructureEvaluator{}.Evaluate(context.Background(), signalWith(models.CategoryAnomalyDetection, 100), ev)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !strings.Contains(f.Summary, "deployment") {
		t.Errorf("summary %q should mention the deployment", f.Summary)
	}
	if f.Confidence < 0.60 || f.Confidence > 0.80 {
		t.Errorf("confidence %.2f outside the infrastructure range", f.Confidence)
	}
}

func TestContextMatchesIntelToCategory(t *testing.T) {
	ev := evidenceWith(nil, nil)
	ev.IntelItems = []models.IntelItem{
		{ID: "I-1", Title: "Credential stuffing wave", Summary: "combolists in circulation", Source: "ThreatWire"},
	}
	f, err := ContextEvaluator{}.Evaluate(context.Background(), signalWith(models.CategoryCredentialStuffing, 100), ev)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !strings.Contains(f.Summary, "corroborates") {
		t.Errorf("summary %q should report corroboration", f.Summary)
	}
	if f.Confidence < 0.50 || f.Confidence > 0.75 {
		t.Errorf("confidence %.2f outside the context range", f.Confidence)
	}
}

func TestPrioritySeverityByCategoryAndVolume(t *testing.T) {
	cases := []struct {
		category models.ThreatCategory
		count    int
		want     models.Severity
	}{
		{models.CategoryBotTraffic, 100, models.SeverityLow},
		{models.CategoryCredentialStuffing, 500, models.SeverityHigh},
		{models.CategoryDeviceCompromise, 10, models.SeverityCritical},
		{models.CategoryProxyNetwork, 10000, models.SeverityHigh},
	}
	for _, tc := range cases {
		f, err := PriorityEvaluator{}.Evaluate(context.Background(), signalWith(tc.category, tc.count), evidenceWith(nil, nil))
		if err != nil {
			t.Fatalf("Evaluate(%s): %v", tc.category, err)
		}
		sev, ok := SeverityHint(f)
		if !ok {
			t.Fatalf("no severity hint in %q", f.Summary)
		}
		if sev != tc.want {
			t.Errorf("%s at %d requests: severity = %s, want %s", tc.category, tc.count, sev, tc.want)
		}
		if f.Confidence < 0.75 || f.Confidence > 0.95 {
			t.Errorf("confidence %.2f outside the priority range", f.Confidence)
		}
	}
}

func TestPriorityEscalatesOnConfirmedHistory(t *testing.T) {
	incidents := []models.HistoricalIncident{
		{ID: "INC-1", ResolvedAs: models.ResolvedTruePositive},
		{ID: "INC-2", ResolvedAs: models.ResolvedTruePositive},
	}
	f, err := PriorityEvaluator{}.Evaluate(context.Background(), signalWith(models.CategoryCredentialStuffing, 100), evidenceWith(incidents, nil))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	sev, _ := SeverityHint(f)
	if sev != models.SeverityCritical {
		t.Errorf("severity = %s, want critical after confirmed history escalation", sev)
	}
}

func TestSeverityHintIgnoresDegradedFindings(t *testing.T) {
	f := models.DegradedFinding(models.EvaluatorPriority, nil, 0)
	if _, ok := SeverityHint(f); ok {
		t.Error("degraded finding should not produce a severity hint")
	}
}
