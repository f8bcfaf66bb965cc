package patterns

import (
	"sort"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// IndicatorFrequency is how often one false-positive indicator fired across
// the retained analyses.
type IndicatorFrequency struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean_impact"`
}

// DashboardStats aggregates the retained analyses for the operational
// dashboard.
type DashboardStats struct {
	Total               int64                `json:"total_analyses"`
	Retained            int                  `json:"retained"`
	BySeverity          map[string]int       `json:"by_severity"`
	ByCategory          map[string]int       `json:"by_category"`
	ByRecommendation    map[string]int       `json:"by_recommendation"`
	PendingReview       int                  `json:"pending_review"`
	AvgProcessingMillis int64                `json:"avg_processing_ms"`
	AvgFalsePositive    float64              `json:"avg_fp_score"`
	TopIndicators       []IndicatorFrequency `json:"top_indicators,omitempty"`
}

// Compute mines the retained window. total is the lifetime count from the
// store, which can exceed len(results) once rotation kicks in.
func Compute(results []*models.AnalysisResult, total int64) DashboardStats {
	stats := DashboardStats{
		Total:            total,
		Retained:         len(results),
		BySeverity:       make(map[string]int),
		ByCategory:       make(map[string]int),
		ByRecommendation: make(map[string]int),
	}
	if len(results) == 0 {
		return stats
	}

	type indAgg struct {
		count int
		sum   float64
	}
	indicators := make(map[string]*indAgg)

	var processingSum int64
	var fpSum float64
	for _, r := range results {
		stats.BySeverity[string(r.Severity)]++
		stats.ByCategory[string(r.Signal.Category)]++
		stats.ByRecommendation[string(r.FalsePositive.Recommendation)]++
		if r.RequiresHumanReview {
			stats.PendingReview++
		}
		processingSum += r.TotalProcessingTime.Milliseconds()
		fpSum += r.FalsePositive.Score

		for _, ind := range r.FalsePositive.Indicators {
			agg, ok := indicators[ind.Name]
			if !ok {
				agg = &indAgg{}
				indicators[ind.Name] = agg
			}
			agg.count++
			agg.sum += ind.Impact
		}
	}

	stats.AvgProcessingMillis = processingSum / int64(len(results))
	stats.AvgFalsePositive = fpSum / float64(len(results))

	for name, agg := range indicators {
		stats.TopIndicators = append(stats.TopIndicators, IndicatorFrequency{
			Name:  name,
			Count: agg.count,
			Mean:  agg.sum / float64(agg.count),
		})
	}
	sort.Slice(stats.TopIndicators, func(i, j int) bool {
		if stats.TopIndicators[i].Count != stats.TopIndicators[j].Count {
			return stats.TopIndicators[i].Count > stats.TopIndicators[j].Count
		}
		return stats.TopIndicators[i].Name < stats.TopIndicators[j].Name
	})
	if len(stats.TopIndicators) > 10 {
		stats.TopIndicators = stats.TopIndicators[:10]
	}

	return stats
}
