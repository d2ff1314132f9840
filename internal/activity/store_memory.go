package activity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"registra/internal/identity"
	"registra/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for development and tests. The identity
// store is only consulted at query time, mirroring the weak actor reference.
type MemoryStore struct {
	mu         sync.RWMutex
	records    []Record
	identities identity.Store
}

func NewMemoryStore(identities identity.Store) *MemoryStore {
	return &MemoryStore{identities: identities}
}

func (s *MemoryStore) Insert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// snapshotDesc copies all records sorted newest first. Search works on the
// copy so the total and the page come from one consistent view.
func (s *MemoryStore) snapshotDesc() []Record {
	s.mu.RLock()
	out := append([]Record(nil), s.records...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*JoinedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.ID == id {
			joined := JoinedRecord{Record: rec}
			joined.Actor = s.resolveActor(ctx, rec.ActorID)
			return &joined, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByActor(_ context.Context, actorID uuid.UUID) ([]Record, error) {
	var out []Record
	for _, rec := range s.snapshotDesc() {
		if rec.ActorID != nil && *rec.ActorID == actorID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]Record, error) {
	return s.snapshotDesc(), nil
}

func (s *MemoryStore) Search(ctx context.Context, filter Filter) ([]JoinedRecord, int, error) {
	var matched []JoinedRecord
	for _, rec := range s.snapshotDesc() {
		if filter.From != nil && rec.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.CreatedAt.After(*filter.To) {
			continue
		}

		joined := JoinedRecord{Record: rec, Actor: s.resolveActor(ctx, rec.ActorID)}
		if !matchesAllTokens(joined, filter.Tokens) {
			continue
		}
		matched = append(matched, joined)
	}

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) resolveActor(ctx context.Context, actorID *uuid.UUID) *identity.DisplayFields {
	if actorID == nil || s.identities == nil {
		return nil
	}
	ident, err := s.identities.FindByID(ctx, *actorID)
	if err != nil {
		// Dangling reference: the identity was removed after the record
		// was written. The record still qualifies on its own fields.
		return nil
	}
	display := ident.Display()
	return &display
}

// matchesAllTokens implements the AND-of-ORs policy: every token must match
// at least one searchable field, case-insensitively.
func matchesAllTokens(rec JoinedRecord, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	fields := searchableFields(rec)
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		found := false
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func searchableFields(rec JoinedRecord) []string {
	fields := []string{
		rec.Description,
		string(rec.Action),
		rec.Device,
		rec.Browser,
		rec.Entity,
		rec.ActorRole,
		rec.IP,
	}
	if rec.Actor != nil {
		fields = append(fields,
			rec.Actor.FirstName,
			rec.Actor.LastName,
			rec.Actor.Email,
			rec.Actor.ExternalID,
		)
	}
	return fields
}
