package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// Weight bounds for the five false-positive sub-checks. Chosen inside the
// qualitative ranges the scoring model defines; documented in DESIGN.md.
const (
	clientBenignShift     = 0.20
	clientSuspiciousShift = -0.15
	sourceBenignShift     = 0.30
	sourcePrivateShift    = 0.20
	sourceKnownBadShift   = -0.30
	endpointHealthShift   = 0.15
	volumeLowShift        = 0.10
	volumeFloodShift      = -0.15
	historicalShiftMax    = 0.20
	consensusLowShift     = 0.15
	consensusHighShift    = -0.10
)

var benignClients = []string{
	"googlebot", "bingbot", "applebot", "duckduckbot", "yandexbot",
	"pingdom", "uptimerobot", "statuscake", "datadog", "kube-probe",
}

var suspiciousClients = []string{
	"python-requests", "go-http-client", "sqlmap", "nikto", "masscan",
	"hydra", "scrapy", "curl",
}

// CIDR-free prefix lists; entries end in '.' and match by prefix.
var (
	benignSourcePrefixes = []string{
		"66.249.", "64.233.", "151.101.", "104.16.", "104.17.", "143.204.", "13.32.",
	}
	privateSourcePrefixes = []string{"10.", "192.168.", "172.16.", "127."}
	knownBadPrefixes      = []string{"203.0.113.", "198.51.100.", "185.220.", "45.155."}
)

// Scorer combines signal attributes, evaluator findings, and historical
// resolutions into one bounded false-positive likelihood.
type Scorer struct{}

// Score runs the five sub-checks and assembles the assessment. The neutral
// prior is 0.5; fired indicators shift it within their bounded weights.
func (Scorer) Score(signal models.ThreatSignal, findings map[string]models.Finding, incidents []models.HistoricalIncident) models.FalsePositiveAssessment {
	var indicators []models.Indicator

	if ind, ok := checkClientIdentifier(signal); ok {
		indicators = append(indicators, ind)
	}
	if ind, ok := checkSourceReputation(signal); ok {
		indicators = append(indicators, ind)
	}
	indicators = append(indicators, checkVolumePattern(signal)...)

	assessment := models.FalsePositiveAssessment{}
	if ind, fpRate, falseCount, realCount, ok := checkHistory(incidents); ok {
		indicators = append(indicators, ind)
		assessment.HistoricalFPRate = &fpRate
		assessment.SimilarResolvedFalse = falseCount
		assessment.SimilarResolvedReal = realCount
	}
	if ind, ok := checkConsensus(findings); ok {
		indicators = append(indicators, ind)
	}

	total := 0.0
	for _, ind := range indicators {
		total += ind.Impact
	}
	assessment.Score = clamp(0.5+total, 0, 1)

	// More definite indicators mean more trust in the score itself.
	assessment.Confidence = clamp(0.35+0.13*float64(len(indicators)), 0, 1)

	switch {
	case assessment.Score >= 0.7:
		assessment.Recommendation = models.RecommendationLikelyFalsePositive
	case assessment.Score <= 0.3:
		assessment.Recommendation = models.RecommendationLikelyReal
	default:
		assessment.Recommendation = models.RecommendationNeedsReview
	}

	sort.SliceStable(indicators, func(i, j int) bool {
		return abs(indicators[i].Impact) > abs(indicators[j].Impact)
	})
	assessment.Indicators = indicators
	assessment.Explanation = explain(indicators, assessment.Score)

	return assessment
}

func checkClientIdentifier(signal models.ThreatSignal) (models.Indicator, bool) {
	client := strings.ToLower(signal.ClientID)
	if client == "" {
		return models.Indicator{}, false
	}
	for _, benign := range benignClients {
		if strings.Contains(client, benign) {
			return models.Indicator{
				Name:        "known_benign_client",
				Impact:      clientBenignShift,
				Category:    "client_identifier",
				Description: fmt.Sprintf("client identifier matches known-benign pattern %q", benign),
			}, true
		}
	}
	for _, suspect := range suspiciousClients {
		if strings.Contains(client, suspect) {
			return models.Indicator{
				Name:        "suspicious_client",
				Impact:      clientSuspiciousShift,
				Category:    "client_identifier",
				Description: fmt.Sprintf("client identifier matches tooling pattern %q", suspect),
			}, true
		}
	}
	return models.Indicator{}, false
}

func checkSourceReputation(signal models.ThreatSignal) (models.Indicator, bool) {
	src := signal.SourceIP
	if src == "" {
		return models.Indicator{}, false
	}
	if matchesPrefix(src, knownBadPrefixes) {
		return models.Indicator{
			Name:        "known_bad_source",
			Impact:      sourceKnownBadShift,
			Category:    "source_reputation",
			Description: fmt.Sprintf("source %s is in a known-bad network range", src),
		}, true
	}
	if matchesPrefix(src, benignSourcePrefixes) {
		return models.Indicator{
			Name:        "benign_source_range",
			Impact:      sourceBenignShift,
			Category:    "source_reputation",
			Description: fmt.Sprintf("source %s belongs to a known cloud/CDN provider range", src),
		}, true
	}
	if matchesPrefix(src, privateSourcePrefixes) {
		return models.Indicator{
			Name:        "private_source_range",
			Impact:      sourcePrivateShift,
			Category:    "source_reputation",
			Description: fmt.Sprintf("source %s is a private/internal address", src),
		}, true
	}
	return models.Indicator{}, false
}

func checkVolumePattern(signal models.ThreatSignal) []models.Indicator {
	var out []models.Indicator

	if endpoint, ok := signal.Metadata["endpoint"].(string); ok {
		lower := strings.ToLower(endpoint)
		for _, probe := range []string{"/health", "/ping", "/status", "/metrics"} {
			if strings.Contains(lower, probe) {
				out = append(out, models.Indicator{
					Name:        "health_check_endpoint",
					Impact:      endpointHealthShift,
					Category:    "volume_pattern",
					Description: fmt.Sprintf("traffic targets health-check-like endpoint %s", endpoint),
				})
				break
			}
		}
	}

	rpm := signal.RequestsPerMinute()
	switch {
	case rpm > 1000:
		out = append(out, models.Indicator{
			Name:        "flood_volume",
			Impact:      volumeFloodShift,
			Category:    "volume_pattern",
			Description: fmt.Sprintf("request rate %.0f/min far exceeds legitimate traffic patterns", rpm),
		})
	case rpm < 10:
		out = append(out, models.Indicator{
			Name:        "low_volume",
			Impact:      volumeLowShift,
			Category:    "volume_pattern",
			Description: fmt.Sprintf("request rate %.0f/min is consistent with legitimate traffic", rpm),
		})
	}
	return out
}

func checkHistory(incidents []models.HistoricalIncident) (models.Indicator, float64, int, int, bool) {
	var falseCount, realCount int
	for _, inc := range incidents {
		switch inc.ResolvedAs {
		case models.ResolvedFalsePositive:
			falseCount++
		case models.ResolvedTruePositive:
			realCount++
		}
	}
	resolved := falseCount + realCount
	if resolved == 0 {
		return models.Indicator{}, 0, 0, 0, false
	}

	fpRate := float64(falseCount) / float64(resolved)
	weight := float64(resolved) / 5
	if weight > 1 {
		weight = 1
	}
	impact := (fpRate - 0.5) * 2 * historicalShiftMax * weight

	return models.Indicator{
		Name:        "historical_resolution",
		Impact:      impact,
		Category:    "history",
		Description: fmt.Sprintf("%d of %d similar resolved incidents were false positives (%.0f%%)", falseCount, resolved, fpRate*100),
	}, fpRate, falseCount, realCount, true
}

func checkConsensus(findings map[string]models.Finding) (models.Indicator, bool) {
	if len(findings) == 0 {
		return models.Indicator{}, false
	}
	var sum float64
	for _, f := range findings {
		sum += f.Confidence
	}
	avg := sum / float64(len(findings))

	switch {
	case avg < 0.5:
		return models.Indicator{
			Name:        "low_evaluator_consensus",
			Impact:      consensusLowShift,
			Category:    "consensus",
			Description: fmt.Sprintf("average evaluator confidence %.2f is low; signal may be noise", avg),
		}, true
	case avg > 0.85:
		return models.Indicator{
			Name:        "high_evaluator_consensus",
			Impact:      consensusHighShift,
			Category:    "consensus",
			Description: fmt.Sprintf("average evaluator confidence %.2f is high; evaluators agree the signal is substantive", avg),
		}, true
	}
	return models.Indicator{}, false
}

func explain(indicators []models.Indicator, score float64) string {
	if len(indicators) == 0 {
		return fmt.Sprintf("No definite indicators fired; score stays at the neutral prior (%.2f).", score)
	}
	parts := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		parts = append(parts, ind.Description)
	}
	return fmt.Sprintf("Score %.2f: %s.", score, strings.Join(parts, "; "))
}

func matchesPrefix(addr string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(addr, p) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
