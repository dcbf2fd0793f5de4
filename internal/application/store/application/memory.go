package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"leaseguard/internal/application/models"
	id "leaseguard/pkg/domain"
	"leaseguard/pkg/platform/sentinel"
)

// MemoryStore is an in-memory application store for tests and local runs.
type MemoryStore struct {
	mu           sync.RWMutex
	applications map[id.ApplicationID]*models.Application
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{applications: make(map[id.ApplicationID]*models.Application)}
}

func (s *MemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.applications[app.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *app
	s.applications[app.ID] = &stored
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *app
	return &copied, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, appID id.ApplicationID, status models.Status, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	app.Status = status
	app.UpdatedAt = updatedAt
	return nil
}

// List returns applications newest first, filtered and paginated.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]*models.Application, error) {
	filter.Clamp()

	s.mu.RLock()
	all := make([]*models.Application, 0, len(s.applications))
	for _, app := range s.applications {
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		copied := *app
		all = append(all, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if filter.Offset >= len(all) {
		return nil, nil
	}
	all = all[filter.Offset:]
	if len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, nil
}
