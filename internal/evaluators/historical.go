package evaluators

import (
	"context"
	"errors"
	"fmt"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// HistoricalEvaluator compares the signal against the customer's incident
// history for the same category.
type HistoricalEvaluator struct{}

func (HistoricalEvaluator) Name() string { return models.EvaluatorHistorical }

func (HistoricalEvaluator) Evaluate(_ context.Context, signal models.ThreatSignal, evidence repo.Evidence) (models.Finding, error) {
	if evidence.LookupFailed(repo.LookupIncidents) {
		return models.Finding{}, errors.New("incident history unavailable")
	}

	incidents := evidence.SimilarIncidents
	var falsePos, truePos int
	for _, inc := range incidents {
		switch inc.ResolvedAs {
		case models.ResolvedFalsePositive:
			falsePos++
		case models.ResolvedTruePositive:
			truePos++
		}
	}

	// More history, more confidence, capped at the top of the usual range.
	confidence := 0.70 + 0.04*float64(min(len(incidents), 5))

	var summary string
	observations := []string{
		fmt.Sprintf("%d similar %s incidents on record for %s", len(incidents), signal.Category, signal.Customer),
	}
	nextSteps := []string{"Compare current signal against most recent resolved incident"}

	switch {
	case len(incidents) == 0:
		summary = fmt.Sprintf("No prior %s incidents for %s; signal is novel for this customer", signal.Category, signal.Customer)
		nextSteps = []string{"Establish a baseline for this customer and category"}
	case falsePos > truePos:
		summary = fmt.Sprintf("History leans benign: %d of %d similar incidents resolved as false positives", falsePos, len(incidents))
		observations = append(observations, fmt.Sprintf("%d resolved as false positive, %d as true positive", falsePos, truePos))
	case truePos > 0:
		summary = fmt.Sprintf("History leans malicious: %d of %d similar incidents confirmed as real threats", truePos, len(incidents))
		observations = append(observations, fmt.Sprintf("%d resolved as true positive, %d as false positive", truePos, falsePos))
		nextSteps = append(nextSteps, "Review remediation applied to the confirmed incidents")
	default:
		summary = fmt.Sprintf("%d similar incidents on record but none conclusively resolved", len(incidents))
	}

	if len(incidents) > 0 {
		observations = append(observations, fmt.Sprintf("Most recent similar incident: %s (%s)", incidents[0].ID, incidents[0].Resolution))
	}

	return models.Finding{
		Evaluator:    models.EvaluatorHistorical,
		Summary:      summary,
		Confidence:   confidence,
		Observations: observations,
		NextSteps:    nextSteps,
	}, nil
}
