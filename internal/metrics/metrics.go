package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AnalysesTotal counts finished analyses by outcome, severity, category.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_analyses_total",
			Help: "Completed analyses by outcome, severity and threat category",
		},
		[]string{"outcome", "severity", "category"},
	)

	// AnalysisSeconds observes end-to-end pipeline latency.
	AnalysisSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_analysis_seconds",
			Help:    "End-to-end analysis latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PhaseSeconds observes per-phase latency from the reconstructed timeline.
	PhaseSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_phase_seconds",
			Help:    "Pipeline phase latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"phase"},
	)

	// EvaluatorSeconds observes individual evaluator runtime.
	EvaluatorSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_evaluator_seconds",
			Help:    "Evaluator runtime",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"evaluator"},
	)

	// FalsePositiveScore observes the distribution of fp scores.
	FalsePositiveScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triage_fp_score",
			Help:    "False-positive score distribution",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// PendingReview gauges analyses currently flagged for human review.
	PendingReview = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "triage_pending_review",
			Help: "Analyses flagged for human review in the retained window",
		},
	)
)

// Register installs all collectors on the default registerer. Repeat
// registration is tolerated so tests and multiple callers stay safe.
func Register() error {
	collectors := []prometheus.Collector{
		AnalysesTotal,
		AnalysisSeconds,
		PhaseSeconds,
		EvaluatorSeconds,
		FalsePositiveScore,
		PendingReview,
	}
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
