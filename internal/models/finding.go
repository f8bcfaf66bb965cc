package models

import "time"

// Evaluator names are fixed at pipeline construction time.
const (
	EvaluatorHistorical     = "historical"
	EvaluatorConfiguration  = "configuration"
	EvaluatorInfrastructure = "infrastructure"
	EvaluatorContext        = "context"
	EvaluatorPriority       = "priority"
)

// EvaluatorNames lists the five evaluators in their fixed dispatch order.
func EvaluatorNames() []string {
	return []string{
		EvaluatorHistorical,
		EvaluatorConfiguration,
		EvaluatorInfrastructure,
		EvaluatorContext,
		EvaluatorPriority,
	}
}

// Finding is one evaluator's structured output about a signal. Immutable once
// returned.
type Finding struct {
	Evaluator      string        `json:"evaluator"`
	Summary        string        `json:"summary"`
	Confidence     float64       `json:"confidence"`
	Observations   []string      `json:"observations,omitempty"`
	NextSteps      []string      `json:"next_steps,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
	Degraded       bool          `json:"degraded,omitempty"`
}

// DegradedFinding is the fail-safe Finding emitted when an evaluator cannot
// complete. It carries zero confidence and a diagnostic summary so the rest
// of the pipeline keeps going.
func DegradedFinding(evaluator string, cause error, elapsed time.Duration) Finding {
	summary := "evaluator did not complete"
	if cause != nil {
		summary = "evaluator did not complete: " + cause.Error()
	}
	return Finding{
		Evaluator:      evaluator,
		Summary:        summary,
		Confidence:     0,
		NextSteps:      []string{"Manual review required"},
		ProcessingTime: elapsed,
		Degraded:       true,
	}
}
