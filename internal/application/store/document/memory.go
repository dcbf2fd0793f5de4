// Package document provides the persistence layer for document metadata.
// Documents are immutable after creation; no update or delete surface exists.
package document

import (
	"context"
	"sync"

	"leaseguard/internal/application/models"
	id "leaseguard/pkg/domain"
)

// MemoryStore is an in-memory document store for tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[id.ApplicationID][]models.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[id.ApplicationID][]models.Document)}
}

func (s *MemoryStore) CreateAll(_ context.Context, documents []models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range documents {
		s.documents[doc.ApplicationID] = append(s.documents[doc.ApplicationID], doc)
	}
	return nil
}

// ListByApplication returns documents in upload order.
func (s *MemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	documents := make([]models.Document, len(s.documents[appID]))
	copy(documents, s.documents[appID])
	return documents, nil
}
