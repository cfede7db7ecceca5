// Package audit implements the audit log repository. Records are written by
// the async audit dispatcher; reads exist for operator inspection.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/adapter/postgres"
	"github.com/substratehq/substrate/internal/domain"
)

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new audit repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

type auditRow struct {
	ID         uuid.UUID  `db:"id"`
	UserID     uuid.UUID  `db:"user_id"`
	Action     string     `db:"action"`
	Category   string     `db:"category"`
	EntityType string     `db:"entity_type"`
	EntityID   *uuid.UUID `db:"entity_id"`
	OldValues  []byte     `db:"old_values"`
	NewValues  []byte     `db:"new_values"`
	Metadata   []byte     `db:"metadata"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (row auditRow) toDomain() (domain.AuditRecord, error) {
	rec := domain.AuditRecord{
		ID:         row.ID,
		UserID:     row.UserID,
		Action:     domain.AuditAction(row.Action),
		Category:   row.Category,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		CreatedAt:  row.CreatedAt,
	}

	for _, pair := range []struct {
		src []byte
		dst *map[string]any
	}{
		{row.OldValues, &rec.OldValues},
		{row.NewValues, &rec.NewValues},
		{row.Metadata, &rec.Metadata},
	} {
		if len(pair.src) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.src, pair.dst); err != nil {
			return domain.AuditRecord{}, fmt.Errorf("decode audit record %s: %w", row.ID, err)
		}
	}

	return rec, nil
}

const insertSQL = `
INSERT INTO audit_log (user_id, action, category, entity_type, entity_id, old_values, new_values, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Insert writes one audit record. The caller treats failures as
// log-and-drop; nothing downstream depends on the write.
func (r *Repo) Insert(ctx context.Context, rec *domain.AuditRecord) error {
	oldVals, err := json.Marshal(orEmpty(rec.OldValues))
	if err != nil {
		return fmt.Errorf("encode audit old_values: %w", err)
	}
	newVals, err := json.Marshal(orEmpty(rec.NewValues))
	if err != nil {
		return fmt.Errorf("encode audit new_values: %w", err)
	}
	meta, err := json.Marshal(orEmpty(rec.Metadata))
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	_, err = querier.Exec(ctx, insertSQL,
		rec.UserID, string(rec.Action), rec.Category, rec.EntityType, rec.EntityID,
		oldVals, newVals, meta)
	if err != nil {
		return postgres.MapError(err, "audit_record", rec.EntityType)
	}

	return nil
}

// Filter narrows audit listings. Zero values mean "no constraint".
type Filter struct {
	UserID     uuid.UUID
	Category   string
	EntityType string
	EntityID   uuid.UUID
	Limit      int
	Offset     int
}

// List returns audit records matching the filter, newest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.AuditRecord, error) {
	if f.Limit <= 0 {
		f.Limit = domain.DefaultPageLimit
	}
	if f.Limit > domain.MaxPageLimit {
		f.Limit = domain.MaxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := qb.Select("id", "user_id", "action", "category", "entity_type", "entity_id",
		"old_values", "new_values", "metadata", "created_at").
		From("audit_log").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	if f.UserID != uuid.Nil {
		query = query.Where(squirrel.Eq{"user_id": f.UserID})
	}
	if f.Category != "" {
		query = query.Where(squirrel.Eq{"category": f.Category})
	}
	if f.EntityType != "" {
		query = query.Where(squirrel.Eq{"entity_type": f.EntityType})
	}
	if f.EntityID != uuid.Nil {
		query = query.Where(squirrel.Eq{"entity_id": f.EntityID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit records: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []auditRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	records := make([]domain.AuditRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
