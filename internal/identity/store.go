package identity

import (
	"context"

	"github.com/google/uuid"
)

// Store is the read-only access the core needs on identities. Implementations
// return sentinel.ErrNotFound when no identity matches.
type Store interface {
	// FindByExternalID resolves the human-facing document number used at login.
	FindByExternalID(ctx context.Context, externalID string) (*Identity, error)
	// FindByID resolves the primary key referenced by activity records.
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)
}
