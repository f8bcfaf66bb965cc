package models

import "time"

// TimelineEventKind enumerates investigation timeline event types.
type TimelineEventKind string

const (
	EventDetection   TimelineEventKind = "detection"
	EventEnrichment  TimelineEventKind = "enrichment"
	EventAnalysis    TimelineEventKind = "analysis"
	EventCorrelation TimelineEventKind = "correlation"
	EventDecision    TimelineEventKind = "decision"
	EventAction      TimelineEventKind = "action"
)

// Phases lists the timeline phases in their fixed pipeline order.
func Phases() []TimelineEventKind {
	return []TimelineEventKind{
		EventDetection,
		EventEnrichment,
		EventAnalysis,
		EventCorrelation,
		EventDecision,
		EventAction,
	}
}

// TimelineEvent records one step of how the analysis was produced.
type TimelineEvent struct {
	Kind        TimelineEventKind `json:"kind"`
	Timestamp   time.Time         `json:"timestamp"`
	Phase       string            `json:"phase"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Detail      map[string]any    `json:"detail,omitempty"`
	Severity    Severity          `json:"severity,omitempty"`
	Evaluator   string            `json:"evaluator,omitempty"`
	Duration    time.Duration     `json:"duration"`
}

// InvestigationTimeline is the chronological audit trail of one analysis.
// Events are ordered ascending by timestamp with ties broken by phase order
// then insertion order; the reconstructor emits them that way by construction.
type InvestigationTimeline struct {
	Events         []TimelineEvent  `json:"events"`
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	TotalDuration  time.Duration    `json:"total_duration"`
	PhaseDurations map[string]int64 `json:"phase_durations_ms"`
}
