package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/evaluators"
	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/repo"
)

// CoordinatorConfig tunes the pipeline.
type CoordinatorConfig struct {
	EvaluatorTimeout  time.Duration
	LowConfidenceMark float64
}

// Coordinator runs the four-phase pipeline: parallel evaluation, scoring,
// planning, timeline reconstruction. Calls are independent; distinct signals
// share no mutable state.
type Coordinator struct {
	snapshotter *repo.Snapshotter
	evaluators  []evaluators.Evaluator
	scorer      Scorer
	planner     *Planner
	cfg         CoordinatorConfig
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock replaces the wall clock. Tests inject deterministic clocks here.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator replaces the analysis ID generator.
func WithIDGenerator(gen func() string) CoordinatorOption {
	return func(c *Coordinator) { c.newID = gen }
}

// NewCoordinator wires the pipeline together. The evaluator set is fixed at
// construction; there is no runtime registration.
func NewCoordinator(snapshotter *repo.Snapshotter, planner *Planner, cfg CoordinatorConfig, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	if cfg.EvaluatorTimeout <= 0 {
		cfg.EvaluatorTimeout = 5 * time.Second
	}
	if cfg.LowConfidenceMark <= 0 {
		cfg.LowConfidenceMark = 0.35
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		snapshotter: snapshotter,
		evaluators:  evaluators.All(),
		planner:     planner,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		newID:       defaultAnalysisID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze runs the full pipeline for one signal and returns the immutable
// analysis record. Evaluator degradation is absorbed; only invalid input,
// template gaps, and timeline-invariant violations surface as errors. On
// caller cancellation no partial result is returned.
func (c *Coordinator) Analyze(ctx context.Context, signal models.ThreatSignal) (*models.AnalysisResult, error) {
	if err := signal.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}

	start := c.now()
	evidence := c.snapshotter.Gather(ctx, signal)

	findings := c.runEvaluators(ctx, signal, evidence)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	phase1 := c.now().Sub(start)

	findingsByName := make(map[string]models.Finding, len(findings))
	for _, f := range findings {
		findingsByName[f.Evaluator] = f
	}

	scoreStart := c.now()
	fp := c.scorer.Score(signal, findingsByName, evidence.SimilarIncidents)
	scoreDur := c.now().Sub(scoreStart)

	severity := c.deriveSeverity(findingsByName, fp)

	policy := models.CustomerPolicy{Customer: signal.Customer, Tier: models.TierStandard}
	if evidence.Policy != nil {
		policy = *evidence.Policy
	}

	planStart := c.now()
	plan, err := c.planner.Plan(signal, severity, fp, policy)
	if err != nil {
		return nil, err
	}
	planDur := c.now().Sub(planStart)

	review, reason := c.reviewDecision(severity, fp, findings)

	timelineStart := c.now()
	timeline, err := BuildTimeline(TimelineInput{
		Signal:         signal,
		Lookups:        evidence.Lookups,
		Findings:       findings,
		FP:             fp,
		ScoreDuration:  scoreDur,
		Plan:           plan,
		PlanDuration:   planDur,
		Severity:       severity,
		RequiresReview: review,
	})
	if err != nil {
		return nil, err
	}
	timelineDur := c.now().Sub(timelineStart)

	tactics, techniques := mitreFor(signal.Category)

	status := models.StatusCompleted
	if review {
		status = models.StatusEscalated
	}

	result := &models.AnalysisResult{
		ID:                  c.newID(),
		Signal:              signal,
		Findings:            findingsByName,
		FalsePositive:       fp,
		Plan:                plan,
		Timeline:            timeline,
		Severity:            severity,
		MITRETactics:        tactics,
		MITRETechniques:     techniques,
		RequiresHumanReview: review,
		ReviewReason:        reason,
		Status:              status,
		Summary:             executiveSummary(signal, severity, fp, plan),
		TotalProcessingTime: phase1 + scoreDur + planDur + timelineDur,
		CreatedAt:           c.now().UTC(),
	}

	c.logger.Info("analysis completed",
		slog.String("analysis_id", result.ID),
		slog.String("signal_id", signal.ID),
		slog.String("severity", string(severity)),
		slog.String("recommendation", string(fp.Recommendation)),
		slog.Bool("requires_review", review),
		slog.Duration("took", result.TotalProcessingTime))

	return result, nil
}

type evalResult struct {
	finding models.Finding
	err     error
}

// runEvaluators fans out all evaluators against the same snapshot and waits
// at the join barrier. Failures and timeouts become degraded findings; the
// barrier always completes.
func (c *Coordinator) runEvaluators(ctx context.Context, signal models.ThreatSignal, evidence repo.Evidence) []models.Finding {
	findings := make([]models.Finding, len(c.evaluators))

	var wg sync.WaitGroup
	for i, ev := range c.evaluators {
		wg.Add(1)
		go func(i int, ev evaluators.Evaluator) {
			defer wg.Done()
			findings[i] = c.runOne(ctx, ev, signal, evidence)
		}(i, ev)
	}
	wg.Wait()

	return findings
}

func (c *Coordinator) runOne(ctx context.Context, ev evaluators.Evaluator, signal models.ThreatSignal, evidence repo.Evidence) models.Finding {
	start := c.now()

	ectx, cancel := context.WithTimeout(ctx, c.cfg.EvaluatorTimeout)
	defer cancel()

	done := make(chan evalResult, 1)
	go func() {
		f, err := ev.Evaluate(ectx, signal, evidence)
		done <- evalResult{f, err}
	}()

	select {
	case r := <-done:
		elapsed := c.now().Sub(start)
		if r.err != nil {
			c.logger.Warn("evaluator degraded",
				slog.String("evaluator", ev.Name()),
				slog.Any("error", r.err))
			return models.DegradedFinding(ev.Name(), r.err, elapsed)
		}
		r.finding.Evaluator = ev.Name()
		r.finding.ProcessingTime = elapsed
		return r.finding
	case <-ectx.Done():
		c.logger.Warn("evaluator timed out", slog.String("evaluator", ev.Name()))
		return models.DegradedFinding(ev.Name(), ectx.Err(), c.now().Sub(start))
	}
}

// deriveSeverity takes the priority evaluator's assessment and floors it by
// what the false-positive evidence alone justifies. Severity is
// evidence-driven; a benign-leaning score never downgrades it.
func (c *Coordinator) deriveSeverity(findings map[string]models.Finding, fp models.FalsePositiveAssessment) models.Severity {
	severity := models.SeverityMedium
	if f, ok := findings[models.EvaluatorPriority]; ok {
		if hint, ok := evaluators.SeverityHint(f); ok {
			severity = hint
		}
	}
	if fp.Recommendation == models.RecommendationLikelyReal && severity.Rank() < models.SeverityHigh.Rank() {
		severity = models.SeverityHigh
	}
	return severity
}

func (c *Coordinator) reviewDecision(severity models.Severity, fp models.FalsePositiveAssessment, findings []models.Finding) (bool, string) {
	var reasons []string
	if severity == models.SeverityCritical {
		reasons = append(reasons, "critical severity")
	}
	if fp.Recommendation == models.RecommendationNeedsReview {
		reasons = append(reasons, "false-positive assessment inconclusive")
	}
	for _, f := range findings {
		if f.Confidence < c.cfg.LowConfidenceMark {
			reasons = append(reasons, fmt.Sprintf("%s evaluator confidence %.2f below threshold", f.Evaluator, f.Confidence))
		}
	}
	if len(reasons) == 0 {
		return false, ""
	}
	return true, strings.Join(reasons, "; ")
}

func executiveSummary(signal models.ThreatSignal, severity models.Severity, fp models.FalsePositiveAssessment, plan models.ResponsePlan) string {
	verdict := "needs analyst review"
	switch fp.Recommendation {
	case models.RecommendationLikelyFalsePositive:
		verdict = "likely benign"
	case models.RecommendationLikelyReal:
		verdict = "likely a real threat"
	}
	return fmt.Sprintf("%s severity %s activity against %s, %s (fp score %.2f); primary response %s within %d minutes.",
		strings.ToUpper(string(severity[0]))+string(severity[1:]), signal.Category, signal.Customer,
		verdict, fp.Score, plan.Primary.Kind, plan.SLAMinutes)
}

func defaultAnalysisID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("an-%d", time.Now().UnixNano())
	}
	return "an-" + hex.EncodeToString(buf)
}
