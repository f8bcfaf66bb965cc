package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/generator"
	"github.com/sentinelsoc/triage-engine/internal/metrics"
	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/patterns"
	"github.com/sentinelsoc/triage-engine/internal/store"
	"github.com/sentinelsoc/triage-engine/internal/utils"
)

// Analyzer is the pipeline capability the service drives.
type Analyzer interface {
	Analyze(ctx context.Context, signal models.ThreatSignal) (*models.AnalysisResult, error)
}

// TriageService bridges the transport layer, the analysis pipeline, the
// result store and the metrics. One instance serves all requests.
type TriageService struct {
	analyzer  Analyzer
	store     store.Store
	generator *generator.Generator
	logger    *slog.Logger
	latency   *utils.LatencyTracker
	analyzed  atomic.Int64
}

// NewTriageService wires the facade.
func NewTriageService(analyzer Analyzer, st store.Store, gen *generator.Generator, logger *slog.Logger) *TriageService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriageService{
		analyzer:  analyzer,
		store:     st,
		generator: gen,
		logger:    logger,
		latency:   utils.NewLatencyTracker(512),
	}
}

// Analyze runs the pipeline for a signal, persists and broadcasts the result,
// and records the operational metrics.
func (s *TriageService) Analyze(ctx context.Context, signal models.ThreatSignal) (*models.AnalysisResult, error) {
	started := time.Now()
	result, err := s.analyzer.Analyze(ctx, signal)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("error", "", string(signal.Category)).Inc()
		return nil, err
	}
	elapsed := time.Since(started)

	if err := s.store.Save(ctx, result); err != nil {
		s.logger.Error("failed to persist analysis",
			slog.String("analysis_id", result.ID),
			slog.Any("error", err))
		return nil, fmt.Errorf("persist analysis %s: %w", result.ID, err)
	}

	s.record(result, elapsed)
	return result, nil
}

// Generate produces a synthetic signal, either random or from a named
// scenario, and runs it through the pipeline.
func (s *TriageService) Generate(ctx context.Context, scenario string) (*models.AnalysisResult, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("signal generator is not enabled")
	}
	var signal models.ThreatSignal
	var err error
	if scenario == "" {
		signal = s.generator.Random()
	} else {
		signal, err = s.generator.Scenario(scenario)
		if err != nil {
			return nil, err
		}
	}
	return s.Analyze(ctx, signal)
}

// Get returns one stored analysis.
func (s *TriageService) Get(ctx context.Context, id string) (*models.AnalysisResult, error) {
	return s.store.Get(ctx, id)
}

// List returns the most recent analyses.
func (s *TriageService) List(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	return s.store.List(ctx, limit)
}

// Dashboard aggregates the retained analyses.
func (s *TriageService) Dashboard(ctx context.Context) (patterns.DashboardStats, error) {
	results, err := s.store.List(ctx, 0)
	if err != nil {
		return patterns.DashboardStats{}, err
	}
	total, err := s.store.TotalCount(ctx)
	if err != nil {
		return patterns.DashboardStats{}, err
	}
	stats := patterns.Compute(results, total)
	metrics.PendingReview.Set(float64(stats.PendingReview))
	return stats, nil
}

// Subscribe exposes the store's broadcast channel.
func (s *TriageService) Subscribe(ctx context.Context) (<-chan *models.AnalysisResult, error) {
	return s.store.Subscribe(ctx)
}

func (s *TriageService) record(result *models.AnalysisResult, elapsed time.Duration) {
	outcome := "completed"
	if result.Status == models.StatusEscalated {
		outcome = "escalated"
	}
	metrics.AnalysesTotal.WithLabelValues(outcome, string(result.Severity), string(result.Signal.Category)).Inc()
	metrics.AnalysisSeconds.Observe(elapsed.Seconds())
	metrics.FalsePositiveScore.Observe(result.FalsePositive.Score)
	for phase, ms := range result.Timeline.PhaseDurations {
		metrics.PhaseSeconds.WithLabelValues(phase).Observe(float64(ms) / 1000)
	}
	for name, finding := range result.Findings {
		metrics.EvaluatorSeconds.WithLabelValues(name).Observe(finding.ProcessingTime.Seconds())
	}

	s.latency.Observe(elapsed)
	if n := s.analyzed.Add(1); n%50 == 0 {
		s.logger.Info("triage latency",
			slog.Int64("analyses", n),
			slog.Duration("p95", s.latency.Percentile(95)))
	}
}
