package evaluators

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// ConfigurationEvaluator checks the signal against the customer's security
// policy: rate limits, allow-lists, bot sensitivity.
type ConfigurationEvaluator struct{}

func (ConfigurationEvaluator) Name() string { return models.EvaluatorConfiguration }

func (ConfigurationEvaluator) Evaluate(_ context.Context, signal models.ThreatSignal, evidence repo.Evidence) (models.Finding, error) {
	if evidence.LookupFailed(repo.LookupPolicy) || evidence.Policy == nil {
		return models.Finding{}, errors.New("customer policy unavailable")
	}
	policy := *evidence.Policy

	confidence := 0.85
	rpm := signal.RequestsPerMinute()

	var summary string
	observations := []string{
		fmt.Sprintf("Customer tier %s, configured rate limit %d req/min", policy.Tier, policy.RateLimitPerMinute),
		fmt.Sprintf("Observed rate %.0f req/min over %s", rpm, signal.Window),
	}
	nextSteps := []string{"Verify policy thresholds match current traffic profile"}

	switch {
	case policy.Allowlisted(signal.SourceIP):
		summary = fmt.Sprintf("Source %s is on the customer allow-list; policy treats it as trusted", signal.SourceIP)
		confidence = 0.95
		nextSteps = []string{"Confirm the allow-list entry is still intended"}
	case policy.RateLimitPerMinute > 0 && rpm > float64(policy.RateLimitPerMinute):
		summary = fmt.Sprintf("Observed rate %.0f req/min exceeds the configured limit of %d", rpm, policy.RateLimitPerMinute)
		confidence = 0.95
		nextSteps = append(nextSteps, "Confirm rate limiting engaged at the edge")
	case policy.BotSensitivity == "high" && signal.Category == models.CategoryBotTraffic:
		summary = "Customer runs high bot sensitivity; bot-like traffic warrants action even at moderate volume"
		confidence = 0.90
	default:
		summary = "Signal is within the customer's configured thresholds"
	}

	if !policy.AutoBlockEnabled {
		observations = append(observations, "Auto-block disabled; blocking actions need approval")
	}

	return models.Finding{
		Evaluator:    models.EvaluatorConfiguration,
		Summary:      summary,
		Confidence:   confidence,
		Observations: observations,
		NextSteps:    nextSteps,
	}, nil
}
