package engine

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

var anchor = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func baseSignal() models.ThreatSignal {
	return models.ThreatSignal{
		ID:           "sig-1",
		Category:     models.CategoryCredentialStuffing,
		Customer:     "acme-corp",
		SourceIP:     "198.18.0.1",
		RequestCount: 500,
		Window:       5 * time.Minute,
		DetectedAt:   anchor,
	}
}

func confidentFindings() map[string]models.Finding {
	out := make(map[string]models.Finding)
	for _, name := range models.EvaluatorNames() {
		out[name] = models.Finding{Evaluator: name, Confidence: 0.75}
	}
	return out
}

func TestScoreBoundsUnderRandomSampling(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	categories := models.Categories()
	clients := []string{"", "Googlebot/2.1", "python-requests/2.31", "Mozilla/5.0"}
	sources := []string{"203.0.113.9", "66.249.66.1", "10.1.2.3", "198.18.0.1", ""}

	var scorer Scorer
	for i := 0; i < 200; i++ {
		signal := models.ThreatSignal{
			ID:           fmt.Sprintf("sig-%d", i),
			Category:     categories[rng.Intn(len(categories))],
			Customer:     "acme-corp",
			SourceIP:     sources[rng.Intn(len(sources))],
			ClientID:     clients[rng.Intn(len(clients))],
			RequestCount: rng.Intn(20000),
			Window:       time.Duration(1+rng.Intn(60)) * time.Minute,
			DetectedAt:   anchor,
		}
		findings := make(map[string]models.Finding)
		for _, name := range models.EvaluatorNames() {
			findings[name] = models.Finding{Evaluator: name, Confidence: rng.Float64()}
		}
		var incidents []models.HistoricalIncident
		for j := rng.Intn(8); j > 0; j-- {
			outcomes := []string{models.ResolvedTruePositive, models.ResolvedFalsePositive, models.ResolvedInconclusive}
			incidents = append(incidents, models.HistoricalIncident{ResolvedAs: outcomes[rng.Intn(3)]})
		}

		fp := scorer.Score(signal, findings, incidents)
		if fp.Score < 0 || fp.Score > 1 {
			t.Fatalf("sample %d: score %.3f out of [0,1]", i, fp.Score)
		}
		if fp.Confidence < 0 || fp.Confidence > 1 {
			t.Fatalf("sample %d: confidence %.3f out of [0,1]", i, fp.Confidence)
		}
	}
}

func TestRecommendationBuckets(t *testing.T) {
	var scorer Scorer

	// Benign client + CDN range + low volume pushes well past 0.7.
	benign := baseSignal()
	benign.Category = models.CategoryBotTraffic
	benign.ClientID = "Googlebot/2.1"
	benign.SourceIP = "66.249.66.1"
	benign.RequestCount = 20
	fp := scorer.Score(benign, confidentFindings(), nil)
	if fp.Score < 0.7 {
		t.Fatalf("benign scenario score = %.2f, want >= 0.7", fp.Score)
	}
	if fp.Recommendation != models.RecommendationLikelyFalsePositive {
		t.Errorf("benign recommendation = %s", fp.Recommendation)
	}

	// No indicators at all stays at the neutral prior.
	neutral := baseSignal()
	fp = scorer.Score(neutral, confidentFindings(), nil)
	if fp.Score != 0.5 {
		t.Fatalf("neutral scenario score = %.2f, want 0.5", fp.Score)
	}
	if fp.Recommendation != models.RecommendationNeedsReview {
		t.Errorf("neutral recommendation = %s", fp.Recommendation)
	}

	// Known-bad range drags the score to 0.2.
	hostile := baseSignal()
	hostile.SourceIP = "203.0.113.50"
	fp = scorer.Score(hostile, confidentFindings(), nil)
	if fp.Score > 0.3 {
		t.Fatalf("hostile scenario score = %.2f, want <= 0.3", fp.Score)
	}
	if fp.Recommendation != models.RecommendationLikelyReal {
		t.Errorf("hostile recommendation = %s", fp.Recommendation)
	}
}

func TestHistoricalResolutionShiftsScore(t *testing.T) {
	var scorer Scorer
	signal := baseSignal()

	var mostlyFalse []models.HistoricalIncident
	for i := 0; i < 5; i++ {
		mostlyFalse = append(mostlyFalse, models.HistoricalIncident{ResolvedAs: models.ResolvedFalsePositive})
	}
	fp := scorer.Score(signal, confidentFindings(), mostlyFalse)
	if fp.Score <= 0.5 {
		t.Errorf("all-false history should raise score above neutral, got %.2f", fp.Score)
	}
	if fp.HistoricalFPRate == nil || *fp.HistoricalFPRate != 1.0 {
		t.Errorf("historical fp rate = %v, want 1.0", fp.HistoricalFPRate)
	}
	if fp.SimilarResolvedFalse != 5 || fp.SimilarResolvedReal != 0 {
		t.Errorf("resolution counts = %d/%d, want 5/0", fp.SimilarResolvedFalse, fp.SimilarResolvedReal)
	}

	var mostlyReal []models.HistoricalIncident
	for i := 0; i < 5; i++ {
		mostlyReal = append(mostlyReal, models.HistoricalIncident{ResolvedAs: models.ResolvedTruePositive})
	}
	fp = scorer.Score(signal, confidentFindings(), mostlyReal)
	if fp.Score >= 0.5 {
		t.Errorf("all-real history should lower score below neutral, got %.2f", fp.Score)
	}
}

func TestLowConsensusShiftsTowardBenign(t *testing.T) {
	var scorer Scorer
	weak := make(map[string]models.Finding)
	for _, name := range models.EvaluatorNames() {
		weak[name] = models.Finding{Evaluator: name, Confidence: 0.2}
	}
	fp := scorer.Score(baseSignal(), weak, nil)
	if fp.Score <= 0.5 {
		t.Errorf("low consensus should raise score, got %.2f", fp.Score)
	}
}

func TestExplanationOrderedByImpactMagnitude(t *testing.T) {
	var scorer Scorer
	signal := baseSignal()
	signal.ClientID = "Googlebot/2.1"
	signal.SourceIP = "203.0.113.7"

	fp := scorer.Score(signal, confidentFindings(), nil)
	if len(fp.Indicators) < 2 {
		t.Fatalf("expected at least 2 indicators, got %d", len(fp.Indicators))
	}
	for i := 1; i < len(fp.Indicators); i++ {
		if abs(fp.Indicators[i].Impact) > abs(fp.Indicators[i-1].Impact) {
			t.Errorf("indicators not ordered by |impact|: %v before %v", fp.Indicators[i-1].Impact, fp.Indicators[i].Impact)
		}
	}

	// Same inputs, same explanation, every time.
	again := scorer.Score(signal, confidentFindings(), nil)
	if fp.Explanation != again.Explanation {
		t.Error("explanation is not stable across identical inputs")
	}
}
