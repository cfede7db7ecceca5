package objecttype

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

func managerCtx() context.Context {
	actor := domain.NewActor(uuid.New(), domain.PermTypesManage)
	return ctxutil.WithActor(context.Background(), actor)
}

func newTestService(types *typeRepoMock, modules *moduleRepoMock, relations *schemaRelationRepoMock, audit *auditRecorderMock) *Service {
	if modules == nil {
		modules = &moduleRepoMock{}
	}
	if relations == nil {
		relations = &schemaRelationRepoMock{}
	}
	if audit == nil {
		audit = &auditRecorderMock{}
	}
	return NewService(slog.Default(), types, modules, relations, txManagerMock{}, audit)
}

func TestCreateType_Success(t *testing.T) {
	t.Parallel()

	identityID := uuid.New()
	stageID := uuid.New()
	typeID := uuid.New()

	types := &typeRepoMock{
		CreateFunc: func(_ context.Context, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
			out := *def
			out.ID = typeID
			return &out, nil
		},
		ReplaceBindingsFunc: func(_ context.Context, id uuid.UUID, bindings []domain.ModuleBinding) error {
			if id != typeID {
				t.Errorf("bindings written for type %v, want %v", id, typeID)
			}
			if len(bindings) != 2 {
				t.Errorf("bindings = %d, want 2", len(bindings))
			}
			return nil
		},
	}
	modules := &moduleRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
			return &domain.ModuleDefinition{ID: id}, nil
		},
	}
	audit := &auditRecorderMock{}
	svc := newTestService(types, modules, nil, audit)

	def, err := svc.CreateType(managerCtx(), CreateTypeInput{
		Name:        "customer",
		DisplayName: "Customer",
		Modules: []BindingInput{
			{ModuleID: identityID, Required: true, Position: 0},
			{ModuleID: stageID, Position: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateType() = %v", err)
	}
	if def.ID != typeID {
		t.Errorf("id = %v, want %v", def.ID, typeID)
	}
	if !def.IsActive {
		t.Error("new type should be active")
	}
	if types.replaceBindingsCalls != 1 {
		t.Errorf("ReplaceBindings calls = %d, want 1", types.replaceBindingsCalls)
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
}

func TestCreateType_UnknownModule(t *testing.T) {
	t.Parallel()

	types := &typeRepoMock{}
	modules := &moduleRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := newTestService(types, modules, nil, nil)

	_, err := svc.CreateType(managerCtx(), CreateTypeInput{
		Name:        "customer",
		DisplayName: "Customer",
		Modules:     []BindingInput{{ModuleID: uuid.New(), Required: true}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreateType_DuplicateBinding(t *testing.T) {
	t.Parallel()

	modID := uuid.New()
	svc := newTestService(&typeRepoMock{}, nil, nil, nil)

	_, err := svc.CreateType(managerCtx(), CreateTypeInput{
		Name:        "customer",
		DisplayName: "Customer",
		Modules: []BindingInput{
			{ModuleID: modID},
			{ModuleID: modID},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreateType_Forbidden(t *testing.T) {
	t.Parallel()

	svc := newTestService(&typeRepoMock{}, nil, nil, nil)
	ctx := ctxutil.WithActor(context.Background(), domain.NewActor(uuid.New(), domain.PermObjectsRead))

	_, err := svc.CreateType(ctx, CreateTypeInput{Name: "customer", DisplayName: "Customer"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestUpdateType_ReplacesBindings(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	newModID := uuid.New()

	types := &typeRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
			return &domain.ObjectTypeDefinition{
				ID:          typeID,
				Name:        "customer",
				DisplayName: "Customer",
				IsActive:    true,
				Modules:     []domain.ModuleBinding{{ModuleID: uuid.New(), Required: true}},
			}, nil
		},
		UpdateFunc: func(_ context.Context, id uuid.UUID, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
			out := *def
			return &out, nil
		},
		ReplaceBindingsFunc: func(_ context.Context, id uuid.UUID, bindings []domain.ModuleBinding) error {
			return nil
		},
	}
	modules := &moduleRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
			return &domain.ModuleDefinition{ID: id}, nil
		},
	}
	svc := newTestService(types, modules, nil, nil)

	updated, err := svc.UpdateType(managerCtx(), UpdateTypeInput{
		TypeID:  typeID,
		Modules: []BindingInput{{ModuleID: newModID, Required: true, Position: 0}},
	})
	if err != nil {
		t.Fatalf("UpdateType() = %v", err)
	}
	if len(updated.Modules) != 1 || updated.Modules[0].ModuleID != newModID {
		t.Errorf("bindings not replaced: %+v", updated.Modules)
	}
	if types.replaceBindingsCalls != 1 {
		t.Errorf("ReplaceBindings calls = %d, want 1", types.replaceBindingsCalls)
	}
}

func TestUpdateType_KeepsBindingsWhenNil(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	name := "Customers"

	types := &typeRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
			return &domain.ObjectTypeDefinition{ID: typeID, Name: "customer", DisplayName: "Customer"}, nil
		},
		UpdateFunc: func(_ context.Context, id uuid.UUID, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
			out := *def
			return &out, nil
		},
	}
	svc := newTestService(types, nil, nil, nil)

	updated, err := svc.UpdateType(managerCtx(), UpdateTypeInput{TypeID: typeID, DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateType() = %v", err)
	}
	if updated.DisplayName != name {
		t.Errorf("display name = %q, want %q", updated.DisplayName, name)
	}
	if types.replaceBindingsCalls != 0 {
		t.Errorf("ReplaceBindings calls = %d, want 0", types.replaceBindingsCalls)
	}
}

func TestDeleteType_ConflictPassthrough(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	types := &typeRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
			return &domain.ObjectTypeDefinition{ID: typeID, Name: "customer"}, nil
		},
		DeleteFunc: func(_ context.Context, id uuid.UUID) error {
			return domain.ErrConflict
		},
	}
	audit := &auditRecorderMock{}
	svc := newTestService(types, nil, nil, audit)

	err := svc.DeleteType(managerCtx(), typeID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
	if audit.count() != 0 {
		t.Errorf("audit records = %d, want 0", audit.count())
	}
}

func TestCreateSchemaRelation_Success(t *testing.T) {
	t.Parallel()

	sourceID := uuid.New()
	targetID := uuid.New()

	types := &typeRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
			return &domain.ObjectTypeDefinition{ID: id}, nil
		},
	}
	relations := &schemaRelationRepoMock{
		CreateSchemaRelationFunc: func(_ context.Context, def *domain.SchemaRelationDefinition) (*domain.SchemaRelationDefinition, error) {
			out := *def
			out.ID = uuid.New()
			return &out, nil
		},
	}
	audit := &auditRecorderMock{}
	svc := newTestService(types, nil, relations, audit)

	def, err := svc.CreateSchemaRelation(managerCtx(), CreateSchemaRelationInput{
		SourceTypeID:    sourceID,
		TargetTypeID:    targetID,
		RelationType:    domain.SchemaRelationOneToMany,
		SourceFieldName: "tickets",
		TargetFieldName: "customer",
	})
	if err != nil {
		t.Fatalf("CreateSchemaRelation() = %v", err)
	}
	if !def.IsActive {
		t.Error("new schema relation should be active")
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
}

func TestCreateSchemaRelation_InvalidCardinality(t *testing.T) {
	t.Parallel()

	svc := newTestService(&typeRepoMock{}, nil, nil, nil)

	_, err := svc.CreateSchemaRelation(managerCtx(), CreateSchemaRelationInput{
		SourceTypeID:    uuid.New(),
		TargetTypeID:    uuid.New(),
		RelationType:    "one_to_one",
		SourceFieldName: "a",
		TargetFieldName: "b",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestUpdateSchemaRelation_TogglesActiveOnly(t *testing.T) {
	t.Parallel()

	relID := uuid.New()
	var gotActive bool
	updateCalls := 0

	relations := &schemaRelationRepoMock{
		UpdateSchemaRelationActiveFunc: func(_ context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error) {
			updateCalls++
			gotActive = isActive
			return &domain.SchemaRelationDefinition{
				ID:           id,
				RelationType: domain.SchemaRelationOneToMany,
				IsActive:     isActive,
			}, nil
		},
	}
	audit := &auditRecorderMock{}
	svc := newTestService(&typeRepoMock{}, nil, relations, audit)

	def, err := svc.UpdateSchemaRelation(managerCtx(), relID, false)
	if err != nil {
		t.Fatalf("UpdateSchemaRelation() = %v", err)
	}
	if def.IsActive {
		t.Error("is_active = true, want false")
	}
	if gotActive {
		t.Error("repo received is_active = true, want false")
	}
	if updateCalls != 1 {
		t.Errorf("update calls = %d, want 1", updateCalls)
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
}

func TestUpdateSchemaRelation_Forbidden(t *testing.T) {
	t.Parallel()

	svc := newTestService(&typeRepoMock{}, nil, nil, nil)
	ctx := ctxutil.WithActor(context.Background(), domain.NewActor(uuid.New(), domain.PermObjectsRead))

	_, err := svc.UpdateSchemaRelation(ctx, uuid.New(), false)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestCreateSchemaRelation_UnknownType(t *testing.T) {
	t.Parallel()

	types := &typeRepoMock{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := newTestService(types, nil, nil, nil)

	_, err := svc.CreateSchemaRelation(managerCtx(), CreateSchemaRelationInput{
		SourceTypeID:    uuid.New(),
		TargetTypeID:    uuid.New(),
		RelationType:    domain.SchemaRelationManyToMany,
		SourceFieldName: "a",
		TargetFieldName: "b",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}
