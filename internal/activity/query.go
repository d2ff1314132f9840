package activity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"registra/internal/platform/metrics"
	"registra/pkg/domainerrors"
	"registra/pkg/platform/sentinel"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	rollupRecent    = 50
)

// QueryParams is the raw, uncoerced search input from the query string.
// Malformed values are coerced to safe defaults rather than rejected.
type QueryParams struct {
	Q     string
	Page  int
	Limit int
	From  string
	To    string
}

// Pagination describes the returned page.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasMore     bool `json:"hasMore"`
}

// SearchResult is a page of joined records plus its pagination envelope.
type SearchResult struct {
	Results    []JoinedRecord `json:"results"`
	Pagination Pagination     `json:"pagination"`
}

// Stats is the per-category rollup.
type Stats struct {
	Creates int `json:"Creates"`
	Updates int `json:"Updates"`
	Deletes int `json:"Deletes"`
	Total   int `json:"total"`
}

// Summary is the rollup report: category tallies over every record plus the
// most recent records in full.
type Summary struct {
	Stats      Stats    `json:"stats"`
	Activities []Record `json:"activities"`
}

// QueryEngine serves the reporting endpoints over persisted activity.
type QueryEngine struct {
	store   Store
	metrics *metrics.Metrics
}

func NewQueryEngine(store Store, m *metrics.Metrics) *QueryEngine {
	return &QueryEngine{store: store, metrics: m}
}

// Summarize scans all records newest-first, classifies each by the category
// substring rule, and returns the tallies with the 50 most recent records.
func (e *QueryEngine) Summarize(ctx context.Context) (*Summary, error) {
	records, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed getting recent activity")
	}

	summary := &Summary{Stats: Stats{Total: len(records)}}
	for _, rec := range records {
		switch rec.Action.Category() {
		case CategoryCreate:
			summary.Stats.Creates++
		case CategoryUpdate:
			summary.Stats.Updates++
		case CategoryDelete:
			summary.Stats.Deletes++
		}
	}

	if len(records) > rollupRecent {
		records = records[:rollupRecent]
	}
	summary.Activities = records
	return summary, nil
}

// Search runs the faceted, tokenized, paginated search. Total and page come
// from the same store pass, so the pagination envelope is always consistent
// with the returned slice.
func (e *QueryEngine) Search(ctx context.Context, params QueryParams) (*SearchResult, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := Filter{
		Tokens: strings.Fields(params.Q),
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if from, ok := parseDay(params.From); ok {
		filter.From = &from
	}
	if to, ok := parseDay(params.To); ok {
		// A day-granularity upper bound includes the whole calendar day.
		to = endOfDay(to)
		filter.To = &to
	}

	results, total, err := e.store.Search(ctx, filter)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed filtering activities")
	}
	if e.metrics != nil {
		e.metrics.ActivitySearches.Inc()
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	if results == nil {
		results = []JoinedRecord{}
	}
	return &SearchResult{
		Results: results,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			HasMore:     page*limit < total,
		},
	}, nil
}

// FindByID resolves one record with its actor joined.
func (e *QueryEngine) FindByID(ctx context.Context, id uuid.UUID) (*JoinedRecord, error) {
	joined, err := e.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "activity not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed getting activity")
	}
	return joined, nil
}

// ListByActor returns every record tied to one actor, newest first.
func (e *QueryEngine) ListByActor(ctx context.Context, actorID uuid.UUID) ([]Record, error) {
	records, err := e.store.ListByActor(ctx, actorID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed getting activity from user")
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// parseDay accepts a calendar date or a full timestamp; anything else is
// ignored (query coercion, not rejection).
func parseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// endOfDay normalizes t to 23:59:59.999 of its calendar day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
