package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// TimelineInput carries everything the reconstructor needs: stage outputs
// plus their recorded durations. Wall-clock gaps between stages do not
// matter; the timeline is rebuilt from the durations alone.
type TimelineInput struct {
	Signal         models.ThreatSignal
	Lookups        []repo.LookupRecord
	Findings       []models.Finding
	FP             models.FalsePositiveAssessment
	ScoreDuration  time.Duration
	Plan           models.ResponsePlan
	PlanDuration   time.Duration
	Severity       models.Severity
	RequiresReview bool
}

// BuildTimeline deterministically reconstructs the investigation audit trail.
// Events are emitted in fixed phase order with a running clock anchored at
// the signal's detection time, so timestamps are non-decreasing by
// construction; the post-condition is still verified and a violation is
// surfaced as ErrTimelineOrder since it means an upstream timing bug.
func BuildTimeline(in TimelineInput) (models.InvestigationTimeline, error) {
	clock := in.Signal.DetectedAt
	events := make([]models.TimelineEvent, 0, len(in.Lookups)+len(in.Findings)+len(in.Plan.Secondary)+5)

	events = append(events, models.TimelineEvent{
		Kind:        models.EventDetection,
		Timestamp:   clock,
		Phase:       string(models.EventDetection),
		Title:       "Signal detected",
		Description: fmt.Sprintf("%s signal from %s reported for %s", in.Signal.Category, in.Signal.SourceIP, in.Signal.Customer),
		Detail: map[string]any{
			"request_count": in.Signal.RequestCount,
			"window":        in.Signal.Window.String(),
		},
	})

	for _, rec := range in.Lookups {
		clock = clock.Add(rec.Duration)
		desc := fmt.Sprintf("%d records retrieved from %s", rec.Count, rec.Source)
		if rec.Failed {
			desc = fmt.Sprintf("lookup against %s failed; evidence unavailable", rec.Source)
		}
		events = append(events, models.TimelineEvent{
			Kind:        models.EventEnrichment,
			Timestamp:   clock,
			Phase:       string(models.EventEnrichment),
			Title:       "Evidence gathered: " + rec.Name,
			Description: desc,
			Duration:    rec.Duration,
		})
	}

	for _, f := range in.Findings {
		clock = clock.Add(f.ProcessingTime)
		title := "Evaluation completed: " + f.Evaluator
		if f.Degraded {
			title = "Evaluation degraded: " + f.Evaluator
		}
		events = append(events, models.TimelineEvent{
			Kind:        models.EventAnalysis,
			Timestamp:   clock,
			Phase:       string(models.EventAnalysis),
			Title:       title,
			Description: f.Summary,
			Detail:      map[string]any{"confidence": f.Confidence},
			Evaluator:   f.Evaluator,
			Duration:    f.ProcessingTime,
		})
	}

	clock = clock.Add(in.ScoreDuration)
	events = append(events, models.TimelineEvent{
		Kind:        models.EventAnalysis,
		Timestamp:   clock,
		Phase:       string(models.EventAnalysis),
		Title:       "False-positive assessment",
		Description: in.FP.Explanation,
		Detail: map[string]any{
			"score":          in.FP.Score,
			"recommendation": string(in.FP.Recommendation),
		},
		Duration: in.ScoreDuration,
	})

	events = append(events, models.TimelineEvent{
		Kind:        models.EventCorrelation,
		Timestamp:   clock,
		Phase:       string(models.EventCorrelation),
		Title:       "Cross-evaluator correlation",
		Description: correlationSummary(in.Findings),
	})

	clock = clock.Add(in.PlanDuration)
	events = append(events, models.TimelineEvent{
		Kind:        models.EventDecision,
		Timestamp:   clock,
		Phase:       string(models.EventDecision),
		Title:       "Severity and response decided",
		Description: fmt.Sprintf("severity %s, human review %v", in.Severity, in.RequiresReview),
		Detail: map[string]any{
			"requires_human_review": in.RequiresReview,
			"sla_minutes":           in.Plan.SLAMinutes,
		},
		Severity: in.Severity,
		Duration: in.PlanDuration,
	})

	actions := append([]models.ResponseAction{in.Plan.Primary}, in.Plan.Secondary...)
	for i, action := range actions {
		title := "Recommended action: " + string(action.Kind)
		if i == 0 {
			title = "Primary action: " + string(action.Kind)
		}
		events = append(events, models.TimelineEvent{
			Kind:        models.EventAction,
			Timestamp:   clock,
			Phase:       string(models.EventAction),
			Title:       title,
			Description: action.Reason,
			Detail: map[string]any{
				"target":  action.Target,
				"urgency": string(action.Urgency),
			},
		})
	}

	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			return models.InvestigationTimeline{}, fmt.Errorf("%w: event %d (%s) precedes event %d", ErrTimelineOrder, i, events[i].Title, i-1)
		}
	}

	phases := make(map[string]int64, 6)
	for _, phase := range models.Phases() {
		phases[string(phase)] = 0
	}
	for _, ev := range events {
		phases[ev.Phase] += ev.Duration.Milliseconds()
	}

	return models.InvestigationTimeline{
		Events:         events,
		Start:          in.Signal.DetectedAt,
		End:            clock,
		TotalDuration:  clock.Sub(in.Signal.DetectedAt),
		PhaseDurations: phases,
	}, nil
}

func correlationSummary(findings []models.Finding) string {
	var degraded int
	var sum float64
	for _, f := range findings {
		if f.Degraded {
			degraded++
		}
		sum += f.Confidence
	}
	if len(findings) == 0 {
		return "no evaluator findings to correlate"
	}
	avg := sum / float64(len(findings))

	var b strings.Builder
	fmt.Fprintf(&b, "%d evaluators reported, average confidence %.2f", len(findings), avg)
	if degraded > 0 {
		fmt.Fprintf(&b, ", %d degraded", degraded)
	}
	switch {
	case avg >= 0.8:
		b.WriteString("; strong agreement the signal is substantive")
	case avg < 0.5:
		b.WriteString("; weak agreement, findings diverge")
	default:
		b.WriteString("; moderate agreement")
	}
	return b.String()
}
