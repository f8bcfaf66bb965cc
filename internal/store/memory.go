package store

import (
	"context"
	"sync"

	"github.com/sentinelsoc/triage-engine/internal/models"
)

// MemoryStore keeps the most recent analyses in a capped in-memory window
// with channel fan-out for subscribers. Used when no Redis address is
// configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	recent  []*models.AnalysisResult
	byID    map[string]*models.AnalysisResult
	total   int64
	max     int
	subs    map[chan *models.AnalysisResult]struct{}
	closed  bool
	closeCh chan struct{}
}

// NewMemoryStore creates a store retaining at most max analyses.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 200
	}
	return &MemoryStore{
		byID:    make(map[string]*models.AnalysisResult),
		max:     max,
		subs:    make(map[chan *models.AnalysisResult]struct{}),
		closeCh: make(chan struct{}),
	}
}

func (s *MemoryStore) Save(_ context.Context, result *models.AnalysisResult) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.recent = append([]*models.AnalysisResult{result}, s.recent...)
	if len(s.recent) > s.max {
		evicted := s.recent[s.max:]
		s.recent = s.recent[:s.max]
		for _, old := range evicted {
			delete(s.byID, old.ID)
		}
	}
	s.byID[result.ID] = result
	s.total++

	// Non-blocking fan-out under the lock so a channel is never closed
	// while a send is in flight.
	for ch := range s.subs {
		select {
		case ch <- result:
		default:
			// Slow consumer; drop rather than block Save.
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.recent) {
		limit = len(s.recent)
	}
	out := make([]*models.AnalysisResult, limit)
	copy(out, s.recent[:limit])
	return out, nil
}

func (s *MemoryStore) TotalCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan *models.AnalysisResult, error) {
	ch := make(chan *models.AnalysisResult, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, nil
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.closeCh:
		}
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closeCh)
	return nil
}
