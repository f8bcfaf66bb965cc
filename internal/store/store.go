package store

import (
	"context"
	"errors"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// ErrNotFound signals an unknown analysis ID.
var ErrNotFound = errors.New("analysis not found")

// Store persists finished analyses and broadcasts them to subscribers. The
// pipeline itself never touches the store; the service layer saves results
// after Analyze returns.
type Store interface {
	// Save persists the result and broadcasts it to all subscribers.
	Save(ctx context.Context, result *models.AnalysisResult) error

	// Get returns one analysis by ID, ErrNotFound when absent.
	Get(ctx context.Context, id string) (*models.AnalysisResult, error)

	// List returns the most recent analyses, newest first, capped at limit.
	List(ctx context.Context, limit int) ([]*models.AnalysisResult, error)

	// TotalCount reports how many analyses were ever saved, including ones
	// rotated out of the retained window.
	TotalCount(ctx context.Context) (int64, error)

	// Subscribe returns a channel of results saved after the call. The
	// channel closes when ctx is cancelled or the store shuts down. Slow
	// consumers may miss results; delivery is best effort.
	Subscribe(ctx context.Context) (<-chan *models.AnalysisResult, error)

	Close() error
}
