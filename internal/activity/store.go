package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter is the already-coerced search input the query engine hands a store.
// Tokens are matched as case-insensitive literal substrings; a record
// qualifies when every token matches at least one searchable field (record
// fields plus the joined actor's display fields).
type Filter struct {
	Tokens []string
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

// Store persists and queries activity records. Inserts are independent and
// append-only; implementations never update or delete. Search must compute
// the page slice and the total matching count in one consistent read pass so
// the two never skew under concurrent inserts.
type Store interface {
	Insert(ctx context.Context, record Record) error
	// FindByID returns one record with its actor joined, or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*JoinedRecord, error)
	// ListByActor returns all records for one actor, newest first.
	ListByActor(ctx context.Context, actorID uuid.UUID) ([]Record, error)
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]Record, error)
	// Search returns the page slice and total match count.
	Search(ctx context.Context, filter Filter) ([]JoinedRecord, int, error)
}
