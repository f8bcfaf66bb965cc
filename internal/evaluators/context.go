package evaluators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// ContextEvaluator reads the external intel feed for campaigns or events that
// make the signal more or less plausible. Intel is the softest evidence the
// pipeline consumes, which its confidence range reflects.
type ContextEvaluator struct{}

func (ContextEvaluator) Name() string { return models.EvaluatorContext }

func (ContextEvaluator) Evaluate(_ context.Context, signal models.ThreatSignal, evidence repo.Evidence) (models.Finding, error) {
	if evidence.LookupFailed(repo.LookupIntel) {
		return models.Finding{}, errors.New("intel feed unavailable")
	}

	items := evidence.IntelItems
	confidence := 0.50 + 0.05*float64(min(len(items), 5))

	term := categoryIntelTerm(signal.Category)
	var matched int
	observations := make([]string, 0, len(items))
	for _, item := range items {
		text := strings.ToLower(item.Title + " " + item.Summary)
		if strings.Contains(text, term) {
			matched++
		}
		observations = append(observations, fmt.Sprintf("%s: %s", item.Source, item.Title))
	}

	var summary string
	nextSteps := []string{"Monitor the feed for follow-up reporting"}
	switch {
	case len(items) == 0:
		summary = "No relevant external intel; nothing in the feed corroborates or contradicts the signal"
	case matched > 0:
		summary = fmt.Sprintf("%d intel items reference %s activity; external reporting corroborates the signal", matched, signal.Category)
		nextSteps = append(nextSteps, "Pull indicators from the referenced campaigns for matching")
	default:
		summary = fmt.Sprintf("%d intel items in scope but none mention %s activity", len(items), signal.Category)
	}

	return models.Finding{
		Evaluator:    models.EvaluatorContext,
		Summary:      summary,
		Confidence:   confidence,
		Observations: observations,
		NextSteps:    nextSteps,
	}, nil
}

func categoryIntelTerm(category models.ThreatCategory) string {
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
		return strings.ReplaceAll(string(category), "_", " ")
	}
}
