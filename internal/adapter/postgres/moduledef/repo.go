// Package moduledef implements the module definition repository using
// PostgreSQL. A module's field schema is stored as a JSONB document in the
// order the author declared the fields.
package moduledef

import (
	"context"
	"encoding/json"
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

const table = "module_definitions"

var columns = []string{"id", "name", "display_name", "description", "icon", "schema", "created_at", "updated_at"}

// Repo provides module definition persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new module definition repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

type moduleRow struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	DisplayName string    `db:"display_name"`
	Description *string   `db:"description"`
	Icon        *string   `db:"icon"`
	Schema      []byte    `db:"schema"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row moduleRow) toDomain() (*domain.ModuleDefinition, error) {
	var fields []domain.FieldDefinition
	if len(row.Schema) > 0 {
		if err := json.Unmarshal(row.Schema, &fields); err != nil {
			return nil, fmt.Errorf("decode module schema %s: %w", row.ID, err)
		}
	}

	return &domain.ModuleDefinition{
		ID:          row.ID,
		Name:        row.Name,
		DisplayName: row.DisplayName,
		Description: row.Description,
		Icon:        row.Icon,
		Schema:      fields,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// Create inserts a new module definition and returns the persisted record.
// Returns domain.ErrAlreadyExists when the name is taken.
func (r *Repo) Create(ctx context.Context, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error) {
	schemaJSON, err := json.Marshal(mod.Schema)
	if err != nil {
		return nil, fmt.Errorf("encode module schema: %w", err)
	}

	sql, args, err := qb.Insert(table).
		Columns("name", "display_name", "description", "icon", "schema").
		Values(mod.Name, mod.DisplayName, mod.Description, mod.Icon, schemaJSON).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert module: %w", err)
	}

	return r.getOne(ctx, mod.Name, sql, args...)
}

// GetByID returns a module definition by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
	sql, args, err := qb.Select(columns...).From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select module: %w", err)
	}

	return r.getOne(ctx, id, sql, args...)
}

// GetByName returns a module definition by its unique name.
func (r *Repo) GetByName(ctx context.Context, name string) (*domain.ModuleDefinition, error) {
	sql, args, err := qb.Select(columns...).From(table).
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select module by name: %w", err)
	}

	return r.getOne(ctx, name, sql, args...)
}

// List returns all module definitions ordered by name.
// Returns an empty slice (not nil) when none exist.
func (r *Repo) List(ctx context.Context) ([]*domain.ModuleDefinition, error) {
	sql, args, err := qb.Select(columns...).From(table).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list modules: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []moduleRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	mods := make([]*domain.ModuleDefinition, 0, len(rows))
	for _, row := range rows {
		mod, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}

	return mods, nil
}

// Update replaces a module's display fields and schema and bumps updated_at.
// The name is immutable. Returns domain.ErrNotFound if the module is gone.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error) {
	schemaJSON, err := json.Marshal(mod.Schema)
	if err != nil {
		return nil, fmt.Errorf("encode module schema: %w", err)
	}

	sql, args, err := qb.Update(table).
		Set("display_name", mod.DisplayName).
		Set("description", mod.Description).
		Set("icon", mod.Icon).
		Set("schema", schemaJSON).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update module: %w", err)
	}

	return r.getOne(ctx, id, sql, args...)
}

// Delete removes a module definition.
// Returns domain.ErrNotFound if the module does not exist and
// domain.ErrNotFound (via FK mapping) if object data still references it,
// though callers are expected to check usage first.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := qb.Delete(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete module: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "module", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("module %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

const usageCountSQL = `SELECT count(*) FROM object_modules WHERE module_id = $1`

const bindingCountSQL = `SELECT count(*) FROM object_type_modules WHERE module_id = $1`

// UsageCount returns the number of object attachments carrying this module's data.
func (r *Repo) UsageCount(ctx context.Context, id uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var count int
	if err := querier.QueryRow(ctx, usageCountSQL, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("count module usage: %w", err)
	}

	return count, nil
}

// BindingCount returns the number of object types that bind this module.
func (r *Repo) BindingCount(ctx context.Context, id uuid.UUID) (int, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var count int
	if err := querier.QueryRow(ctx, bindingCountSQL, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("count module bindings: %w", err)
	}

	return count, nil
}

func (r *Repo) getOne(ctx context.Context, id any, sql string, args ...any) (*domain.ModuleDefinition, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row moduleRow
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		return nil, postgres.MapError(err, "module", id)
	}

	return row.toDomain()
}

func joinColumns() string {
	return strings.Join(columns, ", ")
}
