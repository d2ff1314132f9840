package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"registra/pkg/platform/sentinel"
)

const identityColumns = `id, external_id, first_name, last_name, email, role, status, credential_hash, need_to_change`

// PostgresStore reads identities from the records database via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE external_id = $1`, identityColumns)
	return s.scanOne(s.pool.QueryRow(ctx, query, externalID))
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM identities WHERE id = $1`, identityColumns)
	return s.scanOne(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) scanOne(row pgx.Row) (*Identity, error) {
	var (
		ident  Identity
		role   string
		status string
	)
	err := row.Scan(
		&ident.ID, &ident.ExternalID, &ident.FirstName, &ident.LastName,
		&ident.Email, &role, &status, &ident.CredentialHash, &ident.NeedToChange,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query identity: %w", err)
	}

	// Stored values predate the closed enums; reject anything unknown here
	// rather than letting it flow into token claims.
	if ident.Role, err = ParseRole(role); err != nil {
		return nil, fmt.Errorf("identity %s: %w", ident.ID, err)
	}
	if ident.Status, err = ParseStatus(status); err != nil {
		return nil, fmt.Errorf("identity %s: %w", ident.ID, err)
	}
	return &ident, nil
}
