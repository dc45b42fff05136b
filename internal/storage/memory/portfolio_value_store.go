package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio-backtest-lab/internal/domain"
	"portfolio-backtest-lab/internal/storage"
)

type valueKey struct {
	runID string
	date  time.Time
}

// PortfolioValueStore is an in-memory implementation of
// storage.PortfolioValueStore.
type PortfolioValueStore struct {
	mu   sync.RWMutex
	data map[valueKey]domain.PortfolioValuePoint
}

// NewPortfolioValueStore creates a new in-memory value series store.
func NewPortfolioValueStore() *PortfolioValueStore {
	return &PortfolioValueStore{
		data: make(map[valueKey]domain.PortfolioValuePoint),
	}
}

// InsertBulk adds the value series of a run. Fails entire batch on
// duplicate (run_id, date).
func (s *PortfolioValueStore) InsertBulk(_ context.Context, points []domain.PortfolioValuePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[valueKey]struct{}, len(points))
	for _, p := range points {
		if p.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := valueKey{p.RunID, p.Date}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		s.data[valueKey{p.RunID, p.Date}] = p
	}
	return nil
}

// GetByRunID retrieves a run's full series, ordered by date ASC.
func (s *PortfolioValueStore) GetByRunID(ctx context.Context, runID string) ([]domain.PortfolioValuePoint, error) {
	return s.GetByRunIDRange(ctx, runID, time.Time{}, time.Time{})
}

// GetByRunIDRange retrieves a run's series within [start, end], ordered by
// date ASC. Zero bounds are open.
func (s *PortfolioValueStore) GetByRunIDRange(_ context.Context, runID string, start, end time.Time) ([]domain.PortfolioValuePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PortfolioValuePoint
	for k, p := range s.data {
		if k.runID != runID {
			continue
		}
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

var _ storage.PortfolioValueStore = (*PortfolioValueStore)(nil)
