package patterns

import (
	"testing"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

func sample(id string, severity models.Severity, category models.ThreatCategory, review bool, score float64, indicators ...models.Indicator) *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:       id,
		Signal:   models.ThreatSignal{Category: category},
		Severity: severity,
		FalsePositive: models.FalsePositiveAssessment{
			Score:          score,
			Recommendation: models.RecommendationNeedsReview,
			Indicators:     indicators,
		},
		RequiresHumanReview: review,
		TotalProcessingTime: 100 * time.Millisecond,
	}
}

func TestComputeEmptyWindow(t *testing.T) {
	stats := Compute(nil, 0)
	if stats.Retained != 0 || stats.Total != 0 {
		t.Errorf("empty window: %+v", stats)
	}
	if stats.AvgProcessingMillis != 0 {
		t.Errorf("avg on empty window = %d", stats.AvgProcessingMillis)
	}
}

func TestComputeAggregates(t *testing.T) {
	bad := models.Indicator{Name: "known_bad_source", Impact: -0.3}
	benign := models.Indicator{Name: "benign_source_range", Impact: 0.3}

	results := []*models.AnalysisResult{
		sample("a", models.SeverityHigh, models.CategoryCredentialStuffing, true, 0.2, bad),
		sample("b", models.SeverityHigh, models.CategoryCredentialStuffing, false, 0.4, bad),
		sample("c", models.SeverityLow, models.CategoryBotTraffic, false, 0.9, benign),
	}

	stats := Compute(results, 25)
	if stats.Total != 25 || stats.Retained != 3 {
		t.Errorf("totals = %d/%d, want 25/3", stats.Total, stats.Retained)
	}
	if stats.BySeverity["high"] != 2 || stats.BySeverity["low"] != 1 {
		t.Errorf("by severity = %v", stats.BySeverity)
	}
	if stats.ByCategory["credential_stuffing"] != 2 {
		t.Errorf("by category = %v", stats.ByCategory)
	}
	if stats.PendingReview != 1 {
		t.Errorf("pending review = %d, want 1", stats.PendingReview)
	}
	if stats.AvgProcessingMillis != 100 {
		t.Errorf("avg processing = %d, want 100", stats.AvgProcessingMillis)
	}
	if len(stats.TopIndicators) == 0 || stats.TopIndicators[0].Name != "known_bad_source" {
		t.Errorf("top indicators = %v", stats.TopIndicators)
	}
	if stats.TopIndicators[0].Count != 2 || stats.TopIndicators[0].Mean != -0.3 {
		t.Errorf("known_bad_source aggregate = %+v", stats.TopIndicators[0])
	}
}
