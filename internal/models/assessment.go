package models

// FPRecommendation buckets the false-positive likelihood for triage.
type FPRecommendation string

const (
	RecommendationLikelyFalsePositive FPRecommendation = "likely_false_positive"
	RecommendationNeedsReview         FPRecommendation = "needs_review"
	RecommendationLikelyReal          FPRecommendation = "likely_real"
)

// Indicator is a named evidence item contributing to the false-positive
// score. Positive impact shifts toward benign, negative toward a real threat.
type Indicator struct {
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// FalsePositiveAssessment is the scored likelihood that a signal is benign,
// with the evidence that produced the score. Higher score = more likely
// benign. Produced once per signal.
type FalsePositiveAssessment struct {
	Score                float64          `json:"score"`
	Confidence           float64          `json:"confidence"`
	Indicators           []Indicator      `json:"indicators,omitempty"`
	Recommendation       FPRecommendation `json:"recommendation"`
	Explanation          string           `json:"explanation"`
	HistoricalFPRate     *float64         `json:"historical_fp_rate,omitempty"`
	SimilarResolvedFalse int              `json:"similar_resolved_false"`
	SimilarResolvedReal  int              `json:"similar_resolved_real"`
}
