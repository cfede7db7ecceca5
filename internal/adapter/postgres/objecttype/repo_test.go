package objecttype

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/substratehq/substrate/internal/adapter/postgres/testhelper"
	"github.com/substratehq/substrate/internal/domain"
)

var typeColumns = []string{"id", "name", "display_name", "description", "icon", "color", "is_active", "created_at", "updated_at"}

var bindingColumns = []string{"object_type_id", "module_id", "required", "position"}

func TestRepo_Create(t *testing.T) {
	typeID := uuid.New()
	now := time.Now()

	t.Run("created", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		rows := pgxmock.NewRows(typeColumns).
			AddRow(typeID, "project", "Project", nil, nil, nil, true, now, now)
		mock.ExpectQuery(`INSERT INTO object_type_definitions`).
			WithArgs("project", "Project", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true).
			WillReturnRows(rows)

		def, err := New(mock).Create(context.Background(), &domain.ObjectTypeDefinition{
			Name:        "project",
			DisplayName: "Project",
			IsActive:    true,
		})
		if err != nil {
			t.Fatalf("Create() = %v", err)
		}
		if def.ID != typeID {
			t.Errorf("id = %v, want %v", def.ID, typeID)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})

	t.Run("duplicate name", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectQuery(`INSERT INTO object_type_definitions`).
			WithArgs("project", "Project", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := New(mock).Create(context.Background(), &domain.ObjectTypeDefinition{
			Name:        "project",
			DisplayName: "Project",
			IsActive:    true,
		})
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("Create() error = %v, want ErrAlreadyExists", err)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})
}

func TestRepo_GetByID(t *testing.T) {
	typeID := uuid.New()
	moduleID := uuid.New()
	now := time.Now()

	t.Run("found with bindings", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectQuery(`SELECT .+ FROM object_type_definitions`).
			WithArgs(typeID).
			WillReturnRows(pgxmock.NewRows(typeColumns).
				AddRow(typeID, "project", "Project", nil, nil, nil, true, now, now))
		mock.ExpectQuery(`SELECT .+ FROM object_type_modules`).
			WithArgs(typeID).
			WillReturnRows(pgxmock.NewRows(bindingColumns).
				AddRow(typeID, moduleID, true, 0))

		def, err := New(mock).GetByID(context.Background(), typeID)
		if err != nil {
			t.Fatalf("GetByID() = %v", err)
		}
		if len(def.Modules) != 1 || def.Modules[0].ModuleID != moduleID || !def.Modules[0].Required {
			t.Errorf("bindings = %+v", def.Modules)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})

	t.Run("not found", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectQuery(`SELECT .+ FROM object_type_definitions`).
			WithArgs(typeID).
			WillReturnError(pgx.ErrNoRows)

		_, err := New(mock).GetByID(context.Background(), typeID)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("GetByID() error = %v, want ErrNotFound", err)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})
}

func TestRepo_ReplaceBindings(t *testing.T) {
	typeID := uuid.New()
	modA := uuid.New()
	modB := uuid.New()

	t.Run("replace with new set", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectExec(`DELETE FROM object_type_modules`).
			WithArgs(typeID).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		mock.ExpectExec(`INSERT INTO object_type_modules`).
			WithArgs(typeID, modA, true, 0, typeID, modB, false, 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))

		err := New(mock).ReplaceBindings(context.Background(), typeID, []domain.ModuleBinding{
			{ModuleID: modA, Required: true, Position: 0},
			{ModuleID: modB, Required: false, Position: 1},
		})
		if err != nil {
			t.Fatalf("ReplaceBindings() = %v", err)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})

	t.Run("empty set only deletes", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectExec(`DELETE FROM object_type_modules`).
			WithArgs(typeID).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		if err := New(mock).ReplaceBindings(context.Background(), typeID, nil); err != nil {
			t.Fatalf("ReplaceBindings() = %v", err)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})
}

func TestRepo_Delete(t *testing.T) {
	typeID := uuid.New()

	t.Run("deleted", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM objects`).
			WithArgs(typeID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`DELETE FROM object_type_definitions`).
			WithArgs(typeID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		if err := New(mock).Delete(context.Background(), typeID); err != nil {
			t.Fatalf("Delete() = %v", err)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})

	t.Run("instances exist", func(t *testing.T) {
		mock := testhelper.NewMockQuerier(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM objects`).
			WithArgs(typeID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

		err := New(mock).Delete(context.Background(), typeID)
		if !errors.Is(err, domain.ErrConflict) {
			t.Errorf("Delete() error = %v, want ErrConflict", err)
		}

		testhelper.ExpectationsWereMet(t, mock)
	})
}
