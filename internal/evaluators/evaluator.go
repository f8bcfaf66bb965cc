package evaluators

import (
	"context"
	"strings"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// Evaluator analyzes one signal from one angle. Implementations are pure
// functions of the signal and the evidence snapshot; they hold no mutable
// state and may run concurrently.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, signal models.ThreatSignal, evidence repo.Evidence) (models.Finding, error)
}

// All returns the fixed evaluator set in dispatch order. The set is closed;
// new variants are added here, not registered at runtime.
func All() []Evaluator {
	return []Evaluator{
		HistoricalEvaluator{},
		ConfigurationEvaluator{},
		InfrastructureEvaluator{},
		ContextEvaluator{},
		PriorityEvaluator{},
	}
}

// SeverityHint extracts the severity the priority evaluator embedded in its
// summary. Returns false for degraded or foreign findings.
func SeverityHint(f models.Finding) (models.Severity, bool) {
	if f.Evaluator != models.EvaluatorPriority || f.Degraded {
		return "", false
	}
	lower := strings.ToLower(f.Summary)
	for _, sev := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		if strings.Contains(lower, string(sev)+" severity") {
			return sev, true
		}
	}
	return "", false
}
