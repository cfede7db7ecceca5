// Package object implements the object instance repository using PostgreSQL.
// Object rows live in objects; module payloads live in object_modules as
// JSONB with a UNIQUE(object_id, module_id) attachment constraint.
package object

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

// Repo provides object instance persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new object repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

type objectRow struct {
	ID           uuid.UUID  `db:"id"`
	ObjectTypeID uuid.UUID  `db:"object_type_id"`
	OwnerID      *uuid.UUID `db:"owner_id"`
	CreatedBy    uuid.UUID  `db:"created_by"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

func (row objectRow) toDomain() *domain.ObjectInstance {
	return &domain.ObjectInstance{
		ID:           row.ID,
		ObjectTypeID: row.ObjectTypeID,
		OwnerID:      row.OwnerID,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		Modules:      []domain.AttachedModule{},
	}
}

type attachmentRow struct {
	ID         uuid.UUID `db:"id"`
	ObjectID   uuid.UUID `db:"object_id"`
	ModuleID   uuid.UUID `db:"module_id"`
	ModuleName string    `db:"module_name"`
	Data       []byte    `db:"data"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (row attachmentRow) toDomain() (domain.AttachedModule, error) {
	var data domain.Record
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return domain.AttachedModule{}, fmt.Errorf("decode module data %s: %w", row.ID, err)
		}
	}
	if data == nil {
		data = domain.Record{}
	}

	return domain.AttachedModule{
		ID:         row.ID,
		ObjectID:   row.ObjectID,
		ModuleID:   row.ModuleID,
		ModuleName: row.ModuleName,
		Data:       data,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// ---------------------------------------------------------------------------
// Raw SQL
// ---------------------------------------------------------------------------

const insertObjectSQL = `
INSERT INTO objects (object_type_id, owner_id, created_by)
VALUES ($1, $2, $3)
RETURNING id, object_type_id, owner_id, created_by, created_at, updated_at`

const getObjectSQL = `
SELECT id, object_type_id, owner_id, created_by, created_at, updated_at
FROM objects
WHERE id = $1`

const touchObjectSQL = `UPDATE objects SET updated_at = now() WHERE id = $1`

const deleteObjectSQL = `DELETE FROM objects WHERE id = $1`

const listAttachmentsSQL = `
SELECT om.id, om.object_id, om.module_id, md.name AS module_name,
       om.data, om.created_at, om.updated_at
FROM object_modules om
JOIN module_definitions md ON md.id = om.module_id
WHERE om.object_id = ANY($1::uuid[])
ORDER BY om.object_id, om.created_at`

const getAttachmentSQL = `
SELECT om.id, om.object_id, om.module_id, md.name AS module_name,
       om.data, om.created_at, om.updated_at
FROM object_modules om
JOIN module_definitions md ON md.id = om.module_id
WHERE om.object_id = $1 AND om.module_id = $2`

const upsertAttachmentSQL = `
INSERT INTO object_modules (object_id, module_id, data)
VALUES ($1, $2, $3)
ON CONFLICT (object_id, module_id)
DO UPDATE SET data = EXCLUDED.data, updated_at = now()
RETURNING id, object_id, module_id, data, created_at, updated_at`

const detachModuleSQL = `DELETE FROM object_modules WHERE object_id = $1 AND module_id = $2`

// ---------------------------------------------------------------------------
// Object rows
// ---------------------------------------------------------------------------

// Create inserts a new object row. Module payloads are written separately
// via UpsertModule inside the same transaction.
func (r *Repo) Create(ctx context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row objectRow
	err := pgxscan.Get(ctx, querier, &row, insertObjectSQL, obj.ObjectTypeID, obj.OwnerID, obj.CreatedBy)
	if err != nil {
		return nil, postgres.MapError(err, "object", obj.ObjectTypeID)
	}

	return row.toDomain(), nil
}

// GetByID returns an object with all its attached module payloads.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row objectRow
	if err := pgxscan.Get(ctx, querier, &row, getObjectSQL, id); err != nil {
		return nil, postgres.MapError(err, "object", id)
	}

	obj := row.toDomain()
	modules, err := r.listAttachments(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	obj.Modules = modules[id]
	if obj.Modules == nil {
		obj.Modules = []domain.AttachedModule{}
	}

	return obj, nil
}

// ListByIDs returns the given objects with their module payloads, in no
// particular order. Missing ids are silently skipped.
func (r *Repo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.ObjectInstance, error) {
	if len(ids) == 0 {
		return []*domain.ObjectInstance{}, nil
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	sql, args, err := qb.Select("id", "object_type_id", "owner_id", "created_by", "created_at", "updated_at").
		From("objects").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list objects by ids: %w", err)
	}

	var rows []objectRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list objects by ids: %w", err)
	}

	return r.hydrate(ctx, rows)
}

// List returns one page of objects matching the filter plus the total match
// count. Results are ordered newest-first by creation time.
func (r *Repo) List(ctx context.Context, f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error) {
	f.Normalize()

	conds, err := filterConditions(f)
	if err != nil {
		return nil, 0, err
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	countQuery := qb.Select("count(*)").From("objects o")
	for _, c := range conds {
		countQuery = countQuery.Where(c)
	}

	countSQL, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count objects: %w", err)
	}

	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count objects: %w", err)
	}

	pageQuery := qb.Select("o.id", "o.object_type_id", "o.owner_id", "o.created_by", "o.created_at", "o.updated_at").
		From("objects o").
		OrderBy("o.created_at DESC", "o.id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset()))
	for _, c := range conds {
		pageQuery = pageQuery.Where(c)
	}

	pageSQL, pageArgs, err := pageQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list objects: %w", err)
	}

	var rows []objectRow
	if err := pgxscan.Select(ctx, querier, &rows, pageSQL, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("list objects: %w", err)
	}

	objs, err := r.hydrate(ctx, rows)
	if err != nil {
		return nil, 0, err
	}

	return objs, total, nil
}

// Touch bumps an object's updated_at. Used after module data writes so the
// object row reflects the latest mutation.
func (r *Repo) Touch(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := querier.Exec(ctx, touchObjectSQL, id)
	if err != nil {
		return postgres.MapError(err, "object", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes an object. Module payloads, instance relations, and
// timeline events go with it via ON DELETE CASCADE.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := querier.Exec(ctx, deleteObjectSQL, id)
	if err != nil {
		return postgres.MapError(err, "object", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Module payloads
// ---------------------------------------------------------------------------

// GetModule returns one attachment by (object, module) pair.
func (r *Repo) GetModule(ctx context.Context, objectID, moduleID uuid.UUID) (*domain.AttachedModule, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row attachmentRow
	if err := pgxscan.Get(ctx, querier, &row, getAttachmentSQL, objectID, moduleID); err != nil {
		return nil, postgres.MapError(err, "object_module", objectID)
	}

	att, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	return &att, nil
}

// UpsertModule writes a module payload, attaching the module if needed.
// ModuleName is not populated on the result; callers that need it already
// hold the module definition.
func (r *Repo) UpsertModule(ctx context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode module data: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row attachmentRow
	err = pgxscan.Get(ctx, querier, &row, upsertAttachmentSQL, objectID, moduleID, payload)
	if err != nil {
		return nil, postgres.MapError(err, "object_module", objectID)
	}

	att, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	return &att, nil
}

// DetachModule removes a module payload from an object.
// Returns domain.ErrNotFound when the module was not attached.
func (r *Repo) DetachModule(ctx context.Context, objectID, moduleID uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := querier.Exec(ctx, detachModuleSQL, objectID, moduleID)
	if err != nil {
		return postgres.MapError(err, "object_module", objectID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("object_module %s/%s: %w", objectID, moduleID, domain.ErrNotFound)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Hydration
// ---------------------------------------------------------------------------

func (r *Repo) hydrate(ctx context.Context, rows []objectRow) ([]*domain.ObjectInstance, error) {
	objs := make([]*domain.ObjectInstance, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		objs = append(objs, row.toDomain())
		ids = append(ids, row.ID)
	}

	if len(ids) == 0 {
		return objs, nil
	}

	modules, err := r.listAttachments(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, obj := range objs {
		if atts, ok := modules[obj.ID]; ok {
			obj.Modules = atts
		}
	}

	return objs, nil
}

func (r *Repo) listAttachments(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.AttachedModule, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []attachmentRow
	if err := pgxscan.Select(ctx, querier, &rows, listAttachmentsSQL, ids); err != nil {
		return nil, fmt.Errorf("list object modules: %w", err)
	}

	out := make(map[uuid.UUID][]domain.AttachedModule, len(ids))
	for _, row := range rows {
		att, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[att.ObjectID] = append(out[att.ObjectID], att)
	}

	return out, nil
}
