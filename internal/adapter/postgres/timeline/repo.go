// Package timeline implements the append-only timeline event repository.
// Events are inserted and listed; there is deliberately no update or delete.
package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/adapter/postgres"
	"github.com/substratehq/substrate/internal/domain"
)

// Repo provides timeline event persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new timeline repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

type eventRow struct {
	ID          uuid.UUID  `db:"id"`
	ObjectID    uuid.UUID  `db:"object_id"`
	EventType   string     `db:"event_type"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Metadata    []byte     `db:"metadata"`
	CreatedBy   *uuid.UUID `db:"created_by"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (row eventRow) toDomain() (domain.TimelineEvent, error) {
	var meta map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			return domain.TimelineEvent{}, fmt.Errorf("decode event metadata %s: %w", row.ID, err)
		}
	}

	return domain.TimelineEvent{
		ID:          row.ID,
		ObjectID:    row.ObjectID,
		EventType:   domain.EventType(row.EventType),
		Title:       row.Title,
		Description: row.Description,
		Metadata:    meta,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
	}, nil
}

const appendEventSQL = `
INSERT INTO timeline_events (object_id, event_type, title, description, metadata, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, object_id, event_type, title, description, metadata, created_by, created_at`

const listEventsSQL = `
SELECT id, object_id, event_type, title, description, metadata, created_by, created_at
FROM timeline_events
WHERE object_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

const countEventsSQL = `SELECT count(*) FROM timeline_events WHERE object_id = $1`

// Append inserts one event. Missing objects map to domain.ErrNotFound via
// the FK on object_id.
func (r *Repo) Append(ctx context.Context, ev *domain.TimelineEvent) (*domain.TimelineEvent, error) {
	meta, err := json.Marshal(orEmpty(ev.Metadata))
	if err != nil {
		return nil, fmt.Errorf("encode event metadata: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row eventRow
	err = pgxscan.Get(ctx, querier, &row, appendEventSQL,
		ev.ObjectID, ev.EventType.String(), ev.Title, ev.Description, meta, ev.CreatedBy)
	if err != nil {
		return nil, postgres.MapError(err, "timeline_event", ev.ObjectID)
	}

	out, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ListForObject returns one page of an object's events, newest first,
// plus the total event count.
func (r *Repo) ListForObject(ctx context.Context, objectID uuid.UUID, limit, offset int) ([]domain.TimelineEvent, int, error) {
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}
	if limit > domain.MaxPageLimit {
		limit = domain.MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var total int
	if err := querier.QueryRow(ctx, countEventsSQL, objectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count timeline events: %w", err)
	}

	var rows []eventRow
	if err := pgxscan.Select(ctx, querier, &rows, listEventsSQL, objectID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list timeline events: %w", err)
	}

	events := make([]domain.TimelineEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := row.toDomain()
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}

	return events, total, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
