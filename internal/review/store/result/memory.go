package result

import (
	"context"
	"sort"
	"sync"

	"leaseguard/internal/review"
	id "leaseguard/pkg/domain"
	"leaseguard/pkg/platform/sentinel"
)

// MemoryStore is an in-memory review result store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[id.ApplicationID][]review.Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[id.ApplicationID][]review.Result)}
}

func (s *MemoryStore) Save(_ context.Context, result review.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ApplicationID] = append(s.results[result.ApplicationID], result)
	return nil
}

// Latest returns the most recently created result for an application.
func (s *MemoryStore) Latest(_ context.Context, appID id.ApplicationID) (review.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := s.results[appID]
	if len(results) == 0 {
		return review.Result{}, sentinel.ErrNotFound
	}

	latest := results[0]
	for _, r := range results[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

// ListByApplication returns all results for an application, newest first.
func (s *MemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]review.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]review.Result, len(s.results[appID]))
	copy(results, s.results[appID])
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}
