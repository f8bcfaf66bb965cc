package evaluators

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// InfrastructureEvaluator correlates the signal with recent platform changes
// that could explain anomalous traffic without an attacker.
type InfrastructureEvaluator struct{}

func (InfrastructureEvaluator) Name() string { return models.EvaluatorInfrastructure }

func (InfrastructureEvaluator) Evaluate(_ context.Context, signal models.ThreatSignal, evidence repo.Evidence) (models.Finding, error) {
	if evidence.LookupFailed(repo.LookupInfra) {
		return models.Finding{}, errors.New("infrastructure events unavailable")
	}

	events := evidence.InfraEvents
	confidence := 0.60 + 0.05*float64(min(len(events), 4))

	var deployments int
	observations := make([]string, 0, len(events)+1)
	for _, ev := range events {
		if ev.Kind == "deployment" {
			deployments++
		}
		observations = append(observations, fmt.Sprintf("%s at %s: %s", ev.Kind, ev.OccurredAt.Format("15:04 MST"), ev.Description))
	}

	var summary string
	nextSteps := []string{"Cross-check signal onset against the change calendar"}
	switch {
	case len(events) == 0:
		summary = "No infrastructure changes in the lookback window; traffic shift is not self-inflicted"
		observations = append(observations, "Change calendar is clean for the lookback window")
	case deployments > 0 && signal.Category == models.CategoryAnomalyDetection:
		summary = fmt.Sprintf("%d recent deployments may explain the anomaly; correlate before treating as hostile", deployments)
		nextSteps = append(nextSteps, "Compare anomaly shape with pre-deployment baseline")
	case deployments > 0:
		summary = fmt.Sprintf("%d deployments and %d other changes in the window; partial overlap with signal onset", deployments, len(events)-deployments)
	default:
		summary = fmt.Sprintf("%d non-deployment changes in the window; weak correlation with the signal", len(events))
	}

	return models.Finding{
		Evaluator:    models.EvaluatorInfrastructure,
		Summary:      summary,
		Confidence:   confidence,
		Observations: observations,
		NextSteps:    nextSteps,
	}, nil
}
