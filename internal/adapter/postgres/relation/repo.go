// Package relation implements persistence for the two relation flavors:
// ad-hoc instance relations between objects and declarative schema relation
// definitions between object types.
package relation

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

// Repo provides relation persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new relation repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Instance relations
// ---------------------------------------------------------------------------

type instanceRow struct {
	ID           uuid.UUID `db:"id"`
	FromObjectID uuid.UUID `db:"from_object_id"`
	ToObjectID   uuid.UUID `db:"to_object_id"`
	RelationType string    `db:"relation_type"`
	Metadata     []byte    `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row instanceRow) toDomain() (domain.InstanceRelation, error) {
	var meta map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			return domain.InstanceRelation{}, fmt.Errorf("decode relation metadata %s: %w", row.ID, err)
		}
	}

	return domain.InstanceRelation{
		ID:           row.ID,
		FromObjectID: row.FromObjectID,
		ToObjectID:   row.ToObjectID,
		RelationType: row.RelationType,
		Metadata:     meta,
		CreatedAt:    row.CreatedAt,
	}, nil
}

const insertInstanceSQL = `
INSERT INTO instance_relations (from_object_id, to_object_id, relation_type, metadata)
VALUES ($1, $2, $3, $4)
RETURNING id, from_object_id, to_object_id, relation_type, metadata, created_at`

const getInstanceSQL = `
SELECT id, from_object_id, to_object_id, relation_type, metadata, created_at
FROM instance_relations
WHERE id = $1`

const listForObjectSQL = `
SELECT id, from_object_id, to_object_id, relation_type, metadata, created_at
FROM instance_relations
WHERE from_object_id = $1 OR to_object_id = $1
ORDER BY created_at DESC, id DESC`

const deleteInstanceSQL = `DELETE FROM instance_relations WHERE id = $1`

const existsByTypeSQL = `
SELECT EXISTS (
    SELECT 1 FROM instance_relations
    WHERE from_object_id = $1 AND to_object_id = $2 AND relation_type = $3
)`

// Create inserts a new instance relation.
// The CHECK(from_object_id <> to_object_id) constraint maps to
// domain.ErrValidation; missing endpoints map to domain.ErrNotFound.
func (r *Repo) Create(ctx context.Context, rel *domain.InstanceRelation) (*domain.InstanceRelation, error) {
	meta, err := json.Marshal(orEmpty(rel.Metadata))
	if err != nil {
		return nil, fmt.Errorf("encode relation metadata: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row instanceRow
	err = pgxscan.Get(ctx, querier, &row, insertInstanceSQL,
		rel.FromObjectID, rel.ToObjectID, rel.RelationType, meta)
	if err != nil {
		return nil, postgres.MapError(err, "relation", rel.FromObjectID)
	}

	out, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// GetByID returns an instance relation by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstanceRelation, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row instanceRow
	if err := pgxscan.Get(ctx, querier, &row, getInstanceSQL, id); err != nil {
		return nil, postgres.MapError(err, "relation", id)
	}

	out, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// ListForObject returns all relations touching an object, either direction,
// newest first.
func (r *Repo) ListForObject(ctx context.Context, objectID uuid.UUID) ([]domain.InstanceRelation, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []instanceRow
	if err := pgxscan.Select(ctx, querier, &rows, listForObjectSQL, objectID); err != nil {
		return nil, fmt.Errorf("list relations for object: %w", err)
	}

	rels := make([]domain.InstanceRelation, 0, len(rows))
	for _, row := range rows {
		rel, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}

	return rels, nil
}

// ExistsByType reports whether a (from, to, type) edge already exists.
// The marketplace uses it to reject duplicate proposals.
func (r *Repo) ExistsByType(ctx context.Context, fromID, toID uuid.UUID, relationType string) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var exists bool
	if err := querier.QueryRow(ctx, existsByTypeSQL, fromID, toID, relationType).Scan(&exists); err != nil {
		return false, fmt.Errorf("check relation exists: %w", err)
	}

	return exists, nil
}

// Delete removes an instance relation.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := querier.Exec(ctx, deleteInstanceSQL, id)
	if err != nil {
		return postgres.MapError(err, "relation", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Schema relation definitions
// ---------------------------------------------------------------------------

type schemaRow struct {
	ID              uuid.UUID `db:"id"`
	SourceTypeID    uuid.UUID `db:"source_type_id"`
	TargetTypeID    uuid.UUID `db:"target_type_id"`
	RelationType    string    `db:"relation_type"`
	SourceFieldName string    `db:"source_field_name"`
	TargetFieldName string    `db:"target_field_name"`
	IsActive        bool      `db:"is_active"`
	Metadata        []byte    `db:"metadata"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row schemaRow) toDomain() (*domain.SchemaRelationDefinition, error) {
	var meta map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &meta); err != nil {
			return nil, fmt.Errorf("decode schema relation metadata %s: %w", row.ID, err)
		}
	}

	return &domain.SchemaRelationDefinition{
		ID:              row.ID,
		SourceTypeID:    row.SourceTypeID,
		TargetTypeID:    row.TargetTypeID,
		RelationType:    domain.SchemaRelationType(row.RelationType),
		SourceFieldName: row.SourceFieldName,
		TargetFieldName: row.TargetFieldName,
		IsActive:        row.IsActive,
		Metadata:        meta,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

const schemaColumns = `id, source_type_id, target_type_id, relation_type,
source_field_name, target_field_name, is_active, metadata, created_at, updated_at`

const insertSchemaSQL = `
INSERT INTO schema_relation_definitions
    (source_type_id, target_type_id, relation_type, source_field_name, target_field_name, is_active, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + schemaColumns

const deleteSchemaSQL = `DELETE FROM schema_relation_definitions WHERE id = $1`

const updateSchemaActiveSQL = `
UPDATE schema_relation_definitions
SET is_active = $2, updated_at = now()
WHERE id = $1
RETURNING ` + schemaColumns

// CreateSchemaRelation inserts a declarative relation between two types.
// Returns domain.ErrAlreadyExists when (source_type, source_field) is taken.
func (r *Repo) CreateSchemaRelation(ctx context.Context, def *domain.SchemaRelationDefinition) (*domain.SchemaRelationDefinition, error) {
	meta, err := json.Marshal(orEmpty(def.Metadata))
	if err != nil {
		return nil, fmt.Errorf("encode schema relation metadata: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row schemaRow
	err = pgxscan.Get(ctx, querier, &row, insertSchemaSQL,
		def.SourceTypeID, def.TargetTypeID, def.RelationType.String(),
		def.SourceFieldName, def.TargetFieldName, def.IsActive, meta)
	if err != nil {
		return nil, postgres.MapError(err, "schema_relation", def.SourceTypeID)
	}

	return row.toDomain()
}

// ListSchemaRelations returns schema relations, optionally scoped to those
// where the given type is source or target. Pass uuid.Nil for all.
func (r *Repo) ListSchemaRelations(ctx context.Context, typeID uuid.UUID) ([]*domain.SchemaRelationDefinition, error) {
	query := qb.Select("id", "source_type_id", "target_type_id", "relation_type",
		"source_field_name", "target_field_name", "is_active", "metadata", "created_at", "updated_at").
		From("schema_relation_definitions").
		OrderBy("created_at DESC", "id DESC")

	if typeID != uuid.Nil {
		query = query.Where(squirrel.Or{
			squirrel.Eq{"source_type_id": typeID},
			squirrel.Eq{"target_type_id": typeID},
		})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list schema relations: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []schemaRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list schema relations: %w", err)
	}

	defs := make([]*domain.SchemaRelationDefinition, 0, len(rows))
	for _, row := range rows {
		def, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// UpdateSchemaRelationActive flips a schema relation's is_active flag.
// Only the declaration row changes; instance_relations is never touched.
func (r *Repo) UpdateSchemaRelationActive(ctx context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row schemaRow
	if err := pgxscan.Get(ctx, querier, &row, updateSchemaActiveSQL, id, isActive); err != nil {
		return nil, postgres.MapError(err, "schema_relation", id)
	}

	return row.toDomain()
}

// DeleteSchemaRelation removes a schema relation definition. Instance
// relations are untouched; the two flavors are independent.
func (r *Repo) DeleteSchemaRelation(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := querier.Exec(ctx, deleteSchemaSQL, id)
	if err != nil {
		return postgres.MapError(err, "schema_relation", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schema_relation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
