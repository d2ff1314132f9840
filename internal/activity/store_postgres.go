package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"registra/internal/enrichment"
	"registra/internal/identity"
	"registra/pkg/platform/sentinel"
)

const recordColumns = `a.id, a.actor_id, a.actor_role, a.action, a.translated_action,
	a.description, a.entity, a.ip, a.geo_city, a.geo_region, a.geo_country,
	a.geo_timezone, a.geo_lat, a.geo_lon, a.geo_source, a.browser, a.os,
	a.device, a.created_at`

const actorColumns = `i.external_id, i.first_name, i.last_name, i.email, i.role`

// PostgresStore persists activity records via pgx. Records are append-only:
// the only write is Insert.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, record Record) error {
	query := `
		INSERT INTO activity_records (
			id, actor_id, actor_role, action, translated_action, description,
			entity, ip, geo_city, geo_region, geo_country, geo_timezone,
			geo_lat, geo_lon, geo_source, browser, os, device, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	var lat, lon *float64
	if len(record.Geo.Coordinates) == 2 {
		lat, lon = &record.Geo.Coordinates[0], &record.Geo.Coordinates[1]
	}
	_, err := s.pool.Exec(ctx, query,
		record.ID, record.ActorID, record.ActorRole, string(record.Action),
		record.TranslatedAction, record.Description, record.Entity, record.IP,
		nullable(record.Geo.City), nullable(record.Geo.Region),
		nullable(record.Geo.Country), nullable(record.Geo.Timezone),
		lat, lon, record.Geo.Source,
		nullable(record.Browser), nullable(record.OS), record.Device,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*JoinedRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM activity_records a
		LEFT JOIN identities i ON i.id = a.actor_id
		WHERE a.id = $1
	`, recordColumns, actorColumns)

	joined, err := scanJoined(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query activity record: %w", err)
	}
	return joined, nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID uuid.UUID) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM activity_records a
		WHERE a.actor_id = $1
		ORDER BY a.created_at DESC
	`, recordColumns)

	rows, err := s.pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("query activity records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM activity_records a
		ORDER BY a.created_at DESC
	`, recordColumns)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query activity records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Search runs the page slice and the total count in one repeatable-read
// snapshot so both come from the same view of the table even while inserts
// keep landing. The window function carries the total on every returned row;
// the fallback count covers pages past the end of the result set.
func (s *PostgresStore) Search(ctx context.Context, filter Filter) ([]JoinedRecord, int, error) {
	where, args := buildSearchWhere(filter)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s, %s, COUNT(*) OVER() AS total
		FROM activity_records a
		LEFT JOIN identities i ON i.id = a.actor_id
		%s
		ORDER BY a.created_at DESC
		LIMIT $%d OFFSET $%d
	`, recordColumns, actorColumns, where, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("begin search tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search activity records: %w", err)
	}

	var (
		results []JoinedRecord
		total   int
	)
	for rows.Next() {
		joined, n, err := scanJoinedWithTotal(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		total = n
		results = append(results, *joined)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activity records: %w", err)
	}

	if len(results) == 0 && filter.Offset > 0 {
		// Page beyond the end: re-count in the same snapshot.
		countWhere, countArgs := buildSearchWhere(filter)
		countQuery := fmt.Sprintf(`
			SELECT COUNT(*)
			FROM activity_records a
			LEFT JOIN identities i ON i.id = a.actor_id
			%s
		`, countWhere)
		if err := tx.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count activity records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit search tx: %w", err)
	}
	return results, total, nil
}

// buildSearchWhere renders the date bounds and the AND-of-ORs token match.
// Each token becomes one ILIKE disjunction across the record fields and the
// joined actor's display fields.
func buildSearchWhere(filter Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("a.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("a.created_at <= $%d", len(args)))
	}

	tokenFields := []string{
		"a.description", "a.action", "a.device", "a.browser", "a.entity",
		"a.actor_role", "a.ip",
		"i.first_name", "i.last_name", "i.email", "i.external_id",
	}
	for _, tok := range filter.Tokens {
		args = append(args, "%"+escapeLike(tok)+"%")
		n := len(args)
		ors := make([]string, len(tokenFields))
		for i, f := range tokenFields {
			ors[i] = fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, f, n)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike neutralizes LIKE metacharacters so tokens match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// recordScanTargets appends the scan destinations for recordColumns.
func recordScanTargets(rec *Record, geo *geoScan) []any {
	return []any{
		&rec.ID, &rec.ActorID, &rec.ActorRole, &rec.Action, &rec.TranslatedAction,
		&rec.Description, &rec.Entity, &rec.IP, &geo.city, &geo.region,
		&geo.country, &geo.timezone, &geo.lat, &geo.lon, &geo.source,
		&geo.browser, &geo.os, &rec.Device, &rec.CreatedAt,
	}
}

type geoScan struct {
	city, region, country, timezone *string
	lat, lon                        *float64
	source                          string
	browser, os                     *string
}

func (g geoScan) apply(rec *Record) {
	rec.Geo = enrichment.Geo{
		City:     deref(g.city),
		Region:   deref(g.region),
		Country:  deref(g.country),
		Timezone: deref(g.timezone),
		Source:   g.source,
	}
	if g.lat != nil && g.lon != nil {
		rec.Geo.Coordinates = []float64{*g.lat, *g.lon}
	}
	rec.Browser = deref(g.browser)
	rec.OS = deref(g.os)
}

type actorScan struct {
	externalID, firstName, lastName, email, role *string
}

func (a *actorScan) targets() []any {
	return []any{&a.externalID, &a.firstName, &a.lastName, &a.email, &a.role}
}

func (a *actorScan) display() *identity.DisplayFields {
	if a.externalID == nil {
		return nil
	}
	return &identity.DisplayFields{
		ExternalID: deref(a.externalID),
		FirstName:  deref(a.firstName),
		LastName:   deref(a.lastName),
		Email:      deref(a.email),
		Role:       identity.Role(deref(a.role)),
	}
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			rec Record
			geo geoScan
		)
		if err := rows.Scan(recordScanTargets(&rec, &geo)...); err != nil {
			return nil, fmt.Errorf("scan activity record: %w", err)
		}
		geo.apply(&rec)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity records: %w", err)
	}
	return records, nil
}

func scanJoined(row pgx.Row) (*JoinedRecord, error) {
	var (
		rec   Record
		geo   geoScan
		actor actorScan
	)
	targets := append(recordScanTargets(&rec, &geo), actor.targets()...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	geo.apply(&rec)
	return &JoinedRecord{Record: rec, Actor: actor.display()}, nil
}

func scanJoinedWithTotal(rows pgx.Rows) (*JoinedRecord, int, error) {
	var (
		rec   Record
		geo   geoScan
		actor actorScan
		total int
	)
	targets := append(recordScanTargets(&rec, &geo), actor.targets()...)
	targets = append(targets, &total)
	if err := rows.Scan(targets...); err != nil {
		return nil, 0, fmt.Errorf("scan activity record: %w", err)
	}
	geo.apply(&rec)
	return &JoinedRecord{Record: rec, Actor: actor.display()}, total, nil
}
