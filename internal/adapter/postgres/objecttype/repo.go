// Package objecttype implements the object type repository using PostgreSQL.
// A type row lives in object_type_definitions; its module bindings live in
// the object_type_modules join table and are replaced wholesale on update.
package objecttype

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/adapter/postgres"
	"github.com/substratehq/substrate/internal/domain"
)

var qb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const (
	table         = "object_type_definitions"
	bindingsTable = "object_type_modules"
)

var columns = []string{"id", "name", "display_name", "description", "icon", "color", "is_active", "created_at", "updated_at"}

// Repo provides object type persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new object type repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

type typeRow struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	DisplayName string    `db:"display_name"`
	Description *string   `db:"description"`
	Icon        *string   `db:"icon"`
	Color       *string   `db:"color"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row typeRow) toDomain() *domain.ObjectTypeDefinition {
	return &domain.ObjectTypeDefinition{
		ID:          row.ID,
		Name:        row.Name,
		DisplayName: row.DisplayName,
		Description: row.Description,
		Icon:        row.Icon,
		Color:       row.Color,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type bindingRow struct {
	ObjectTypeID uuid.UUID `db:"object_type_id"`
	ModuleID     uuid.UUID `db:"module_id"`
	Required     bool      `db:"required"`
	Position     int       `db:"position"`
}

// Create inserts a new object type row. Bindings are written separately via
// ReplaceBindings so the pair can share one transaction.
// Returns domain.ErrAlreadyExists when the name is taken.
func (r *Repo) Create(ctx context.Context, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
	sql, args, err := qb.Insert(table).
		Columns("name", "display_name", "description", "icon", "color", "is_active").
		Values(def.Name, def.DisplayName, def.Description, def.Icon, def.Color, def.IsActive).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert object type: %w", err)
	}

	return r.getTypeRow(ctx, def.Name, sql, args...)
}

// GetByID returns an object type with its module bindings.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
	sql, args, err := qb.Select(columns...).From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select object type: %w", err)
	}

	def, err := r.getTypeRow(ctx, id, sql, args...)
	if err != nil {
		return nil, err
	}

	if err := r.attachBindings(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

// GetByName returns an object type by its unique name, with bindings.
func (r *Repo) GetByName(ctx context.Context, name string) (*domain.ObjectTypeDefinition, error) {
	sql, args, err := qb.Select(columns...).From(table).
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select object type by name: %w", err)
	}

	def, err := r.getTypeRow(ctx, name, sql, args...)
	if err != nil {
		return nil, err
	}

	if err := r.attachBindings(ctx, def); err != nil {
		return nil, err
	}

	return def, nil
}

// List returns all object types ordered by name, each with its bindings.
// Inactive types are included; callers filter if they care.
func (r *Repo) List(ctx context.Context) ([]*domain.ObjectTypeDefinition, error) {
	sql, args, err := qb.Select(columns...).From(table).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list object types: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []typeRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list object types: %w", err)
	}

	defs := make([]*domain.ObjectTypeDefinition, 0, len(rows))
	byID := make(map[uuid.UUID]*domain.ObjectTypeDefinition, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		def := row.toDomain()
		def.Modules = []domain.ModuleBinding{}
		defs = append(defs, def)
		byID[def.ID] = def
		ids = append(ids, def.ID)
	}

	if len(ids) == 0 {
		return defs, nil
	}

	var bindings []bindingRow
	if err := pgxscan.Select(ctx, querier, &bindings, listBindingsByTypeIDsSQL, ids); err != nil {
		return nil, fmt.Errorf("list object type bindings: %w", err)
	}

	for _, b := range bindings {
		def := byID[b.ObjectTypeID]
		if def == nil {
			continue
		}
		def.Modules = append(def.Modules, domain.ModuleBinding{
			ModuleID: b.ModuleID,
			Required: b.Required,
			Position: b.Position,
		})
	}

	return defs, nil
}

// Update replaces a type's display fields and active flag and bumps
// updated_at. The name is immutable.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
	sql, args, err := qb.Update(table).
		Set("display_name", def.DisplayName).
		Set("description", def.Description).
		Set("icon", def.Icon).
		Set("color", def.Color).
		Set("is_active", def.IsActive).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update object type: %w", err)
	}

	updated, err := r.getTypeRow(ctx, id, sql, args...)
	if err != nil {
		return nil, err
	}

	if err := r.attachBindings(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// ReplaceBindings deletes a type's bindings and writes the new set.
// Call inside a transaction together with Update to keep the pair atomic.
func (r *Repo) ReplaceBindings(ctx context.Context, typeID uuid.UUID, bindings []domain.ModuleBinding) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	delSQL, delArgs, err := qb.Delete(bindingsTable).
		Where(squirrel.Eq{"object_type_id": typeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete bindings: %w", err)
	}

	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return postgres.MapError(err, "object_type_binding", typeID)
	}

	if len(bindings) == 0 {
		return nil
	}

	insert := qb.Insert(bindingsTable).
		Columns("object_type_id", "module_id", "required", "position")
	for _, b := range bindings {
		insert = insert.Values(typeID, b.ModuleID, b.Required, b.Position)
	}

	insSQL, insArgs, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert bindings: %w", err)
	}

	if _, err := querier.Exec(ctx, insSQL, insArgs...); err != nil {
		return postgres.MapError(err, "object_type_binding", typeID)
	}

	return nil
}

// Delete removes an object type. Fails with domain.ErrConflict while
// instances of the type still exist.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var instances int
	if err := querier.QueryRow(ctx, countInstancesSQL, id).Scan(&instances); err != nil {
		return fmt.Errorf("count object type instances: %w", err)
	}
	if instances > 0 {
		return fmt.Errorf("object type %s has %d instances: %w", id, instances, domain.ErrConflict)
	}

	sql, args, err := qb.Delete(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete object type: %w", err)
	}

	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "object_type", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("object type %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

const countInstancesSQL = `SELECT count(*) FROM objects WHERE object_type_id = $1`

const listBindingsByTypeIDSQL = `
SELECT object_type_id, module_id, required, position
FROM object_type_modules
WHERE object_type_id = $1
ORDER BY position, module_id`

const listBindingsByTypeIDsSQL = `
SELECT object_type_id, module_id, required, position
FROM object_type_modules
WHERE object_type_id = ANY($1::uuid[])
ORDER BY object_type_id, position, module_id`

func (r *Repo) getTypeRow(ctx context.Context, id any, sql string, args ...any) (*domain.ObjectTypeDefinition, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row typeRow
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		return nil, postgres.MapError(err, "object_type", id)
	}

	return row.toDomain(), nil
}

func (r *Repo) attachBindings(ctx context.Context, def *domain.ObjectTypeDefinition) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []bindingRow
	if err := pgxscan.Select(ctx, querier, &rows, listBindingsByTypeIDSQL, def.ID); err != nil {
		return fmt.Errorf("list bindings for type %s: %w", def.ID, err)
	}

	def.Modules = make([]domain.ModuleBinding, 0, len(rows))
	for _, b := range rows {
		def.Modules = append(def.Modules, domain.ModuleBinding{
			ModuleID: b.ModuleID,
			Required: b.Required,
			Position: b.Position,
		})
	}

	return nil
}
