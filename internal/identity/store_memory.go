package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"registra/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]Identity
	byExt map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[uuid.UUID]Identity),
		byExt: make(map[string]uuid.UUID),
	}
}

// Seed inserts or replaces an identity. Test and bootstrap helper.
func (s *MemoryStore) Seed(identities ...Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range identities {
		s.byID[ident.ID] = ident
		s.byExt[ident.ExternalID] = ident.ID
	}
}

func (s *MemoryStore) FindByExternalID(_ context.Context, externalID string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExt[externalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ident := s.byID[id]
	return &ident, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ident, nil
}
