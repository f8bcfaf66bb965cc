package engine

import (
	"testing"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

func neutralAssessment() models.FalsePositiveAssessment {
	return models.FalsePositiveAssessment{
		Score:          0.5,
		Confidence:     0.6,
		Recommendation: models.RecommendationNeedsReview,
	}
}

func standardPolicy() models.CustomerPolicy {
	return models.CustomerPolicy{
		Customer:         "acme-corp",
		Tier:             models.TierStandard,
		AutoBlockEnabled: true,
	}
}

func TestNewPlannerValidatesEveryPair(t *testing.T) {
	if _, err := NewPlanner(); err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
}

func TestAllowlistedTargetNeverBlocked(t *testing.T) {
	planner, err := NewPlanner()
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}

	policy := standardPolicy()
	policy.AllowlistIPs = []string{"198.51.100.7"}

	signal := baseSignal()
	signal.SourceIP = "198.51.100.7"

	// Even a likely-real critical signal must not block an allow-listed target.
	fp := neutralAssessment()
	fp.Score = 0.1
	fp.Recommendation = models.RecommendationLikelyReal

	for _, severity := range []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical} {
		plan, err := planner.Plan(signal, severity, fp, policy)
		if err != nil {
			t.Fatalf("Plan(%s): %v", severity, err)
		}
		if plan.Primary.Kind == models.ActionBlockIP || plan.Primary.Kind == models.ActionQuarantine {
			t.Errorf("severity %s: allow-listed target got blocking primary %s", severity, plan.Primary.Kind)
		}
		for _, sec := range plan.Secondary {
			if sec.Target == signal.SourceIP && sec.Kind.Blocking() {
				t.Errorf("severity %s: allow-listed target got blocking secondary %s", severity, sec.Kind)
			}
		}
	}
}

func TestAutoBlockDisabledForcesApproval(t *testing.T) {
	planner, _ := NewPlanner()
	policy := standardPolicy()
	policy.AutoBlockEnabled = false

	plan, err := planner.Plan(baseSignal(), models.SeverityHigh, neutralAssessment(), policy)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !plan.Primary.Kind.Blocking() {
		t.Fatalf("expected a blocking primary for high credential stuffing, got %s", plan.Primary.Kind)
	}
	if !plan.Primary.RequiresApproval {
		t.Error("blocking action without auto-block must require approval")
	}
	if plan.Primary.AutoExecutable {
		t.Error("blocking action without auto-block must not be auto-executable")
	}
}

func TestHighFPScoreDowngradesToMonitor(t *testing.T) {
	planner, _ := NewPlanner()
	fp := neutralAssessment()
	fp.Score = 0.85
	fp.Recommendation = models.RecommendationLikelyFalsePositive

	plan, err := planner.Plan(baseSignal(), models.SeverityHigh, fp, standardPolicy())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Primary.Kind != models.ActionMonitor {
		t.Errorf("primary = %s, want monitor for fp score %.2f", plan.Primary.Kind, fp.Score)
	}
	if plan.Primary.AutoExecutable {
		t.Error("downgraded primary must not be auto-executable")
	}
}

func TestLowFPScoreEscalatesUrgency(t *testing.T) {
	planner, _ := NewPlanner()
	fp := neutralAssessment()
	fp.Score = 0.2
	fp.Recommendation = models.RecommendationLikelyReal

	plan, err := planner.Plan(baseSignal(), models.SeverityHigh, fp, standardPolicy())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// The high credential-stuffing template starts at urgent.
	if plan.Primary.Urgency != models.UrgencyImmediate {
		t.Errorf("urgency = %s, want immediate after escalation", plan.Primary.Urgency)
	}
}

func TestSecondariesOrderedByUrgencyThenConfidence(t *testing.T) {
	planner, _ := NewPlanner()
	plan, err := planner.Plan(baseSignal(), models.SeverityCritical, neutralAssessment(), standardPolicy())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for i := 1; i < len(plan.Secondary); i++ {
		prev, cur := plan.Secondary[i-1], plan.Secondary[i]
		if cur.Urgency.Rank() > prev.Urgency.Rank() {
			t.Errorf("secondary %d (%s) more urgent than %d (%s)", i, cur.Urgency, i-1, prev.Urgency)
		}
		if cur.Urgency.Rank() == prev.Urgency.Rank() && cur.Confidence > prev.Confidence {
			t.Errorf("secondary %d confidence %.2f above %d at equal urgency", i, cur.Confidence, i-1)
		}
	}
}

func TestSLAPositiveAndPremiumDiscounted(t *testing.T) {
	planner, _ := NewPlanner()
	severities := []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}

	standard := standardPolicy()
	premium := standardPolicy()
	premium.Tier = models.TierPremium

	for _, severity := range severities {
		stdPlan, err := planner.Plan(baseSignal(), severity, neutralAssessment(), standard)
		if err != nil {
			t.Fatalf("Plan(%s): %v", severity, err)
		}
		premPlan, err := planner.Plan(baseSignal(), severity, neutralAssessment(), premium)
		if err != nil {
			t.Fatalf("Plan(%s, premium): %v", severity, err)
		}
		if stdPlan.SLAMinutes <= 0 || premPlan.SLAMinutes <= 0 {
			t.Errorf("%s: non-positive SLA (std=%d, prem=%d)", severity, stdPlan.SLAMinutes, premPlan.SLAMinutes)
		}
		if premPlan.SLAMinutes > stdPlan.SLAMinutes {
			t.Errorf("%s: premium SLA %d exceeds standard %d", severity, premPlan.SLAMinutes, stdPlan.SLAMinutes)
		}
	}
}

func TestEscalationPathGrowsWithSeverity(t *testing.T) {
	planner, _ := NewPlanner()
	policy := standardPolicy()

	low, _ := planner.Plan(baseSignal(), models.SeverityLow, neutralAssessment(), policy)
	critical, _ := planner.Plan(baseSignal(), models.SeverityCritical, neutralAssessment(), policy)

	if len(low.EscalationPath) != 1 {
		t.Errorf("low severity path length = %d, want 1", len(low.EscalationPath))
	}
	if len(critical.EscalationPath) != 4 {
		t.Errorf("critical severity path length = %d, want 4", len(critical.EscalationPath))
	}
}

func TestEscalationPathPrefersCustomerContacts(t *testing.T) {
	planner, _ := NewPlanner()
	policy := standardPolicy()
	policy.EscalationContacts = []string{"soc@acme-corp.example"}

	plan, _ := planner.Plan(baseSignal(), models.SeverityHigh, neutralAssessment(), policy)
	if len(plan.EscalationPath) == 0 || plan.EscalationPath[0] != "soc@acme-corp.example" {
		t.Errorf("escalation path %v should start with the customer contact", plan.EscalationPath)
	}
}
