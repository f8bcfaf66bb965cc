package models

import "time"

// AnalysisStatus is the lifecycle state of a finished analysis.
type AnalysisStatus string

const (
	StatusCompleted AnalysisStatus = "completed"
	StatusEscalated AnalysisStatus = "escalated"
)

// MITRETactic is a standardized ATT&CK tactic identifier attached to a
// result for cross-system correlation.
type MITRETactic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MITRETechnique is a standardized ATT&CK technique identifier.
type MITRETechnique struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AnalysisResult is the immutable aggregate produced once per signal. It
// exactly owns its sub-records; they are never shared across results.
type AnalysisResult struct {
	ID                  string                  `json:"id"`
	Signal              ThreatSignal            `json:"signal"`
	Findings            map[string]Finding      `json:"findings"`
	FalsePositive       FalsePositiveAssessment `json:"false_positive"`
	Plan                ResponsePlan            `json:"plan"`
	Timeline            InvestigationTimeline   `json:"timeline"`
	Severity            Severity                `json:"severity"`
	MITRETactics        []MITRETactic           `json:"mitre_tactics,omitempty"`
	MITRETechniques     []MITRETechnique        `json:"mitre_techniques,omitempty"`
	RequiresHumanReview bool                    `json:"requires_human_review"`
	ReviewReason        string                  `json:"review_reason,omitempty"`
	Status              AnalysisStatus          `json:"status"`
	Summary             string                  `json:"summary"`
	TotalProcessingTime time.Duration           `json:"total_processing_time"`
	CreatedAt           time.Time               `json:"created_at"`
}
