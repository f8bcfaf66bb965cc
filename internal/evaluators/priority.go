package evaluators

import (
	"context"
	"fmt"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// PriorityEvaluator assesses how severe the signal is. It works from the
// signal itself plus whatever incident history is present, so it never
// degrades on evidence failure.
type PriorityEvaluator struct{}

func (PriorityEvaluator) Name() string { return models.EvaluatorPriority }

func (PriorityEvaluator) Evaluate(_ context.Context, signal models.ThreatSignal, evidence repo.Evidence) (models.Finding, error) {
	rpm := signal.RequestsPerMinute()
	severity := baseSeverity(signal.Category)

	observations := []string{
		fmt.Sprintf("Category %s carries a %s baseline", signal.Category, severity),
		fmt.Sprintf("Observed rate %.0f req/min", rpm),
	}

	if rpm > 1000 {
		severity = escalateSeverity(severity)
		observations = append(observations, "Request rate above 1000/min escalates the baseline")
	}

	var confirmed int
	for _, inc := range evidence.SimilarIncidents {
		if inc.ResolvedAs == models.ResolvedTruePositive {
			confirmed++
		}
	}
	if confirmed >= 2 {
		severity = escalateSeverity(severity)
		observations = append(observations, fmt.Sprintf("%d confirmed prior incidents of this kind escalate the baseline", confirmed))
	}

	confidence := 0.75 + 0.05*float64(severity.Rank())
	if rpm > 1000 || confirmed >= 2 {
		confidence += 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	summary := fmt.Sprintf("Priority assessment: %s severity %s activity against %s", severity, signal.Category, signal.Customer)
	nextSteps := []string{"Confirm severity with the customer's incident history"}
	if severity.Rank() >= models.SeverityHigh.Rank() {
		nextSteps = append(nextSteps, "Notify the on-call responder")
	}

	return models.Finding{
		Evaluator:    models.EvaluatorPriority,
		Summary:      summary,
		Confidence:   confidence,
		Observations: observations,
		NextSteps:    nextSteps,
	}, nil
}

func baseSeverity(category models.ThreatCategory) models.Severity {
	switch category {
	case models.CategoryDeviceCompromise:
		return models.SeverityCritical
	case models.CategoryCredentialStuffing:
		return models.SeverityHigh
	case models.CategoryProxyNetwork, models.CategoryRateLimitBreach:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func escalateSeverity(s models.Severity) models.Severity {
	switch s {
	case models.SeverityLow:
		return models.SeverityMedium
	case models.SeverityMedium:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}
