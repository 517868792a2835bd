package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opscart/job-sizer/pkg/models"
)

// MemoryStore keeps results and observations in process, for storage.type
// memory. Nothing survives the process.
type MemoryStore struct {
	mutex        sync.RWMutex
	results      map[string]*models.AllocationResult
	order        []string
	observations []models.Observation
	closed       bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]*models.AllocationResult)}
}

func (s *MemoryStore) SaveResult(ctx context.Context, result *models.AllocationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fillResult(result)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return errClosed
	}

	if _, ok := s.results[result.ID]; ok {
		return fmt.Errorf("result %s already exists", result.ID)
	}
	stored := *result
	s.results[result.ID] = &stored
	s.order = append(s.order, result.ID)
	return nil
}

func (s *MemoryStore) GetResult(ctx context.Context, id string) (*models.AllocationResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result, ok := s.results[id]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	copied := *result
	return &copied, nil
}

func (s *MemoryStore) ListResults(ctx context.Context, category string, limit int) ([]*models.AllocationResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var results []*models.AllocationResult
	for _, id := range s.order {
		if r := s.results[id]; r.Category == category {
			copied := *r
			results = append(results, &copied)
		}
	}

	// Newest first; equal timestamps keep the reverse of insertion order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) SaveObservations(ctx context.Context, observations []models.Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return errClosed
	}

	for _, obs := range observations {
		obs.Category = observationCategory(obs)
		usage := make(map[models.Resource]float64, len(obs.Usage))
		for r, v := range obs.Usage {
			usage[r] = v
		}
		obs.Usage = usage
		s.observations = append(s.observations, obs)
	}
	return nil
}

func (s *MemoryStore) LoadObservations(ctx context.Context, category string) ([]models.Observation, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var observations []models.Observation
	for _, obs := range s.observations {
		if category == models.AllCategory || obs.Category == category {
			observations = append(observations, obs)
		}
	}
	return observations, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closed = true
	return nil
}

var errClosed = fmt.Errorf("store is closed")

func fillResult(result *models.AllocationResult) {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
}

func observationCategory(obs models.Observation) string {
	if obs.Category == "" {
		return "default"
	}
	return obs.Category
}
