package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// EvidenceSource exposes the four read-only lookups the pipeline consumes.
// Implementations must be safe for concurrent use; the pipeline never writes
// back.
type EvidenceSource interface {
	SimilarIncidents(ctx context.Context, customer string, category models.ThreatCategory, window time.Duration) ([]models.HistoricalIncident, error)
	CustomerPolicy(ctx context.Context, customer string) (*models.CustomerPolicy, error)
	InfraEventsSince(ctx context.Context, since time.Time) ([]models.InfraEvent, error)
	IntelItems(ctx context.Context, category models.ThreatCategory, keywords []string) ([]models.IntelItem, error)
}

// Lookup names recorded in evidence snapshots.
const (
	LookupIncidents = "historical_incidents"
	LookupPolicy    = "customer_policy"
	LookupInfra     = "infra_events"
	LookupIntel     = "intel_items"
)

// LookupRecord captures one evidence query performed for a snapshot. The
// timeline reconstructor turns each record into an enrichment event.
type LookupRecord struct {
	Name     string
	Source   string
	Duration time.Duration
	Count    int
	Failed   bool
}

// Evidence is the immutable snapshot handed to every evaluator of one
// analysis. A failed lookup leaves its slice empty and marks the record;
// only the evaluator depending on it degrades.
type Evidence struct {
	SimilarIncidents []models.HistoricalIncident
	Policy           *models.CustomerPolicy
	InfraEvents      []models.InfraEvent
	IntelItems       []models.IntelItem
	Lookups          []LookupRecord
}

// LookupFailed reports whether the named lookup failed while gathering this
// snapshot. An empty slice with a successful lookup is real absence of
// evidence, not degradation.
func (e Evidence) LookupFailed(name string) bool {
	for _, rec := range e.Lookups {
		if rec.Name == name {
			return rec.Failed
		}
	}
	return false
}

// Snapshotter gathers evidence snapshots from a source, timing each lookup.
type Snapshotter struct {
	source         EvidenceSource
	logger         *slog.Logger
	now            func() time.Time
	infraLookback  time.Duration
	incidentWindow time.Duration
}

// NewSnapshotter constructs a Snapshotter. The now function may be nil, in
// which case wall-clock time is used.
func NewSnapshotter(source EvidenceSource, logger *slog.Logger, now func() time.Time, infraLookback, incidentWindow time.Duration) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	if infraLookback <= 0 {
		infraLookback = time.Hour
	}
	if incidentWindow <= 0 {
		incidentWindow = 30 * 24 * time.Hour
	}
	return &Snapshotter{
		source:         source,
		logger:         logger,
		now:            now,
		infraLookback:  infraLookback,
		incidentWindow: incidentWindow,
	}
}

// Gather queries all four lookups for the signal and returns the snapshot.
// Individual lookup failures are absorbed: the affected evidence stays empty
// and the failure is recorded for the timeline and the logs.
func (s *Snapshotter) Gather(ctx context.Context, signal models.ThreatSignal) Evidence {
	var ev Evidence

	start := s.now()
	incidents, err := s.source.SimilarIncidents(ctx, signal.Customer, signal.Category, s.incidentWindow)
	ev.Lookups = append(ev.Lookups, s.record(LookupIncidents, "Incident Database", start, len(incidents), err))
	if err == nil {
		ev.SimilarIncidents = incidents
	}

	start = s.now()
	policy, err := s.source.CustomerPolicy(ctx, signal.Customer)
	count := 0
	if policy != nil {
		count = 1
	}
	ev.Lookups = append(ev.Lookups, s.record(LookupPolicy, "Policy Service", start, count, err))
	if err == nil {
		ev.Policy = policy
	}

	start = s.now()
	infra, err := s.source.InfraEventsSince(ctx, signal.DetectedAt.Add(-s.infraLookback))
	ev.Lookups = append(ev.Lookups, s.record(LookupInfra, "Infrastructure Platform", start, len(infra), err))
	if err == nil {
		ev.InfraEvents = infra
	}

	start = s.now()
	intel, err := s.source.IntelItems(ctx, signal.Category, intelKeywords(signal))
	ev.Lookups = append(ev.Lookups, s.record(LookupIntel, "Intel Feed", start, len(intel), err))
	if err == nil {
		ev.IntelItems = intel
	}

	return ev
}

func (s *Snapshotter) record(name, source string, start time.Time, count int, err error) LookupRecord {
	rec := LookupRecord{
		Name:     name,
		Source:   source,
		Duration: s.now().Sub(start),
		Count:    count,
	}
	if err != nil {
		rec.Failed = true
		rec.Count = 0
		s.logger.Warn("evidence lookup failed",
			slog.String("lookup", name),
			slog.Any("error", err))
	}
	return rec
}

func intelKeywords(signal models.ThreatSignal) []string {
	keywords := []string{signal.Customer, string(signal.Category)}
	if signal.SourceIP != "" {
		keywords = append(keywords, signal.SourceIP)
	}
	return keywords
}
