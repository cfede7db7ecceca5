package object

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/processor"
	"github.com/substratehq/substrate/internal/schema"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

type fixture struct {
	objects  *objectRepoMock
	types    *typeRepoMock
	modules  *moduleRepoMock
	timeline *timelineRepoMock
	audit    *auditRecorderMock
	runner   *processorRunnerMock
	oracle   PermissionOracle
}

func (f *fixture) service() *Service {
	if f.objects == nil {
		f.objects = &objectRepoMock{}
	}
	if f.types == nil {
		f.types = &typeRepoMock{}
	}
	if f.modules == nil {
		f.modules = &moduleRepoMock{}
	}
	if f.timeline == nil {
		f.timeline = &timelineRepoMock{}
	}
	if f.audit == nil {
		f.audit = &auditRecorderMock{}
	}
	if f.runner == nil {
		f.runner = &processorRunnerMock{}
	}
	return NewService(slog.Default(), f.objects, f.types, f.modules, f.timeline,
		schema.NewCache(), f.oracle, f.runner, txManagerMock{}, f.audit, time.Second)
}

func writerCtx() context.Context {
	actor := domain.NewActor(uuid.New(),
		domain.PermObjectsRead, domain.PermObjectsWrite, domain.PermObjectsDelete)
	return ctxutil.WithActor(context.Background(), actor)
}

func identityModule(id uuid.UUID) *domain.ModuleDefinition {
	return &domain.ModuleDefinition{
		ID:   id,
		Name: domain.ModuleIdentity,
		Schema: []domain.FieldDefinition{
			{Key: "name", Type: domain.FieldTypeText, Label: "Name", Required: true},
			{Key: "email", Type: domain.FieldTypeEmail, Label: "Email"},
		},
	}
}

func stageModule(id uuid.UUID) *domain.ModuleDefinition {
	return &domain.ModuleDefinition{
		ID:   id,
		Name: domain.ModuleStage,
		Schema: []domain.FieldDefinition{
			{Key: "stage", Type: domain.FieldTypeText, Label: "Stage", Default: "lead"},
			{Key: "status", Type: domain.FieldTypeText, Label: "Status", Default: "active"},
		},
	}
}

func TestCreateObject_Success(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	identityID := uuid.New()
	stageID := uuid.New()
	objID := uuid.New()

	defs := map[uuid.UUID]*domain.ModuleDefinition{
		identityID: identityModule(identityID),
		stageID:    stageModule(stageID),
	}

	f := &fixture{
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{
					ID:       typeID,
					Name:     "customer",
					IsActive: true,
					Modules: []domain.ModuleBinding{
						{ModuleID: identityID, Required: true, Position: 0},
						{ModuleID: stageID, Position: 1},
					},
				}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
				return defs[id], nil
			},
		},
		objects: &objectRepoMock{
			CreateFunc: func(_ context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error) {
				out := *obj
				out.ID = objID
				return &out, nil
			},
			UpsertModuleFunc: func(_ context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error) {
				return &domain.AttachedModule{ObjectID: objectID, ModuleID: moduleID, Data: data}, nil
			},
		},
	}
	svc := f.service()

	view, err := svc.CreateObject(writerCtx(), CreateObjectInput{
		ObjectTypeID: typeID,
		Modules: map[string]domain.Record{
			domain.ModuleIdentity: {"name": "Ada Lovelace"},
			domain.ModuleStage:    {},
		},
	})
	if err != nil {
		t.Fatalf("CreateObject() = %v", err)
	}
	if view.Object.ID != objID {
		t.Errorf("id = %v, want %v", view.Object.ID, objID)
	}
	if view.DisplayName != "Ada Lovelace" {
		t.Errorf("display name = %q, want %q", view.DisplayName, "Ada Lovelace")
	}

	stage, ok := view.Object.Module(domain.ModuleStage)
	if !ok {
		t.Fatal("stage module missing on created object")
	}
	if stage.Data["stage"] != "lead" {
		t.Errorf("stage default = %v, want lead", stage.Data["stage"])
	}
	if f.audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", f.audit.count())
	}
}

func TestCreateObject_MissingRequiredModule(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	identityID := uuid.New()

	f := &fixture{
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{
					ID:       typeID,
					IsActive: true,
					Modules:  []domain.ModuleBinding{{ModuleID: identityID, Required: true}},
				}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
				return identityModule(identityID), nil
			},
		},
	}
	svc := f.service()

	_, err := svc.CreateObject(writerCtx(), CreateObjectInput{
		ObjectTypeID: typeID,
		Modules:      map[string]domain.Record{},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreateObject_UnboundModule(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	identityID := uuid.New()

	f := &fixture{
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{
					ID:       typeID,
					IsActive: true,
					Modules:  []domain.ModuleBinding{{ModuleID: identityID, Required: true}},
				}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
				return identityModule(identityID), nil
			},
		},
	}
	svc := f.service()

	_, err := svc.CreateObject(writerCtx(), CreateObjectInput{
		ObjectTypeID: typeID,
		Modules: map[string]domain.Record{
			domain.ModuleIdentity: {"name": "Ada"},
			"monetary":            {"amount": 100},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestCreateObject_InvalidModuleData(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	identityID := uuid.New()

	f := &fixture{
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{
					ID:       typeID,
					IsActive: true,
					Modules:  []domain.ModuleBinding{{ModuleID: identityID, Required: true}},
				}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
				return identityModule(identityID), nil
			},
		},
		objects: &objectRepoMock{},
	}
	svc := f.service()

	_, err := svc.CreateObject(writerCtx(), CreateObjectInput{
		ObjectTypeID: typeID,
		Modules: map[string]domain.Record{
			domain.ModuleIdentity: {"name": "Ada", "email": "not-an-email"},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if f.objects.upsertCalls != 0 {
		t.Errorf("upsert calls = %d, want 0 on invalid data", f.objects.upsertCalls)
	}
}

func TestCreateObject_InactiveType(t *testing.T) {
	t.Parallel()

	f := &fixture{
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{ID: id, IsActive: false}, nil
			},
		},
	}
	svc := f.service()

	_, err := svc.CreateObject(writerCtx(), CreateObjectInput{ObjectTypeID: uuid.New()})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestGetObject_FiltersUnreadableModules(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	identityID := uuid.New()
	monetaryID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID: objID,
					Modules: []domain.AttachedModule{
						{ModuleID: identityID, ModuleName: domain.ModuleIdentity, Data: domain.Record{"name": "Ada"}},
						{ModuleID: monetaryID, ModuleName: domain.ModuleMonetary, Data: domain.Record{"amount": 5000}},
					},
				}, nil
			},
		},
		oracle: denyOracle{denyRead: map[uuid.UUID]bool{monetaryID: true}},
	}
	svc := f.service()

	view, err := svc.GetObject(writerCtx(), objID)
	if err != nil {
		t.Fatalf("GetObject() = %v", err)
	}
	if len(view.Object.Modules) != 1 {
		t.Fatalf("visible modules = %d, want 1", len(view.Object.Modules))
	}
	if view.Object.Modules[0].ModuleName != domain.ModuleIdentity {
		t.Errorf("remaining module = %q", view.Object.Modules[0].ModuleName)
	}
	if view.DisplayName != "Ada" {
		t.Errorf("display name = %q, want Ada", view.DisplayName)
	}
}

func TestUpdateModuleData_EmitsStatusChangeEvent(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	stageID := uuid.New()
	def := stageModule(stageID)

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID: objID,
					Modules: []domain.AttachedModule{
						{ModuleID: stageID, ModuleName: domain.ModuleStage, Data: domain.Record{"stage": "lead", "status": "active"}},
					},
				}, nil
			},
			UpsertModuleFunc: func(_ context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error) {
				return &domain.AttachedModule{ObjectID: objectID, ModuleID: moduleID, Data: data}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByNameFunc: func(_ context.Context, name string) (*domain.ModuleDefinition, error) {
				return def, nil
			},
		},
	}
	svc := f.service()

	_, err := svc.UpdateModuleData(writerCtx(), UpdateModuleDataInput{
		ObjectID:   objID,
		ModuleName: domain.ModuleStage,
		Data:       domain.Record{"stage": "won", "status": "closed"},
	})
	if err != nil {
		t.Fatalf("UpdateModuleData() = %v", err)
	}
	if f.timeline.count() != 1 {
		t.Fatalf("timeline events = %d, want 1", f.timeline.count())
	}
	ev := f.timeline.events[0]
	if ev.EventType != domain.EventStatusChange {
		t.Errorf("event type = %q", ev.EventType)
	}
	if ev.Metadata["from"] != "active" || ev.Metadata["to"] != "closed" {
		t.Errorf("event metadata = %v", ev.Metadata)
	}
}

func TestUpdateModuleData_TimelineFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	stageID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID: objID,
					Modules: []domain.AttachedModule{
						{ModuleID: stageID, ModuleName: domain.ModuleStage, Data: domain.Record{"status": "active"}},
					},
				}, nil
			},
			UpsertModuleFunc: func(_ context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error) {
				return &domain.AttachedModule{ObjectID: objectID, ModuleID: moduleID, Data: data}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByNameFunc: func(_ context.Context, name string) (*domain.ModuleDefinition, error) {
				return stageModule(stageID), nil
			},
		},
		timeline: &timelineRepoMock{err: errors.New("timeline down")},
	}
	svc := f.service()

	_, err := svc.UpdateModuleData(writerCtx(), UpdateModuleDataInput{
		ObjectID:   objID,
		ModuleName: domain.ModuleStage,
		Data:       domain.Record{"stage": "won", "status": "closed"},
	})
	if err != nil {
		t.Fatalf("UpdateModuleData() = %v, timeline failure must not surface", err)
	}
}

func TestUpdateModuleData_WriteDenied(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	stageID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{ID: objID}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByNameFunc: func(_ context.Context, name string) (*domain.ModuleDefinition, error) {
				return stageModule(stageID), nil
			},
		},
		oracle: denyOracle{denyWrite: map[uuid.UUID]bool{stageID: true}},
	}
	svc := f.service()

	_, err := svc.UpdateModuleData(writerCtx(), UpdateModuleDataInput{
		ObjectID:   objID,
		ModuleName: domain.ModuleStage,
		Data:       domain.Record{"status": "active"},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestAttachModule_AlreadyAttached(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	stageID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID: objID,
					Modules: []domain.AttachedModule{
						{ModuleID: stageID, ModuleName: domain.ModuleStage},
					},
				}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByNameFunc: func(_ context.Context, name string) (*domain.ModuleDefinition, error) {
				return stageModule(stageID), nil
			},
		},
	}
	svc := f.service()

	_, err := svc.AttachModule(writerCtx(), AttachModuleInput{ObjectID: objID, ModuleName: domain.ModuleStage})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("error = %v, want ErrAlreadyExists", err)
	}
}

func TestDetachModule_RequiredBindingRejected(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	typeID := uuid.New()
	identityID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID:           objID,
					ObjectTypeID: typeID,
					Modules: []domain.AttachedModule{
						{ModuleID: identityID, ModuleName: domain.ModuleIdentity},
					},
				}, nil
			},
		},
		modules: &moduleRepoMock{
			GetByNameFunc: func(_ context.Context, name string) (*domain.ModuleDefinition, error) {
				return identityModule(identityID), nil
			},
		},
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{
					ID:      typeID,
					Modules: []domain.ModuleBinding{{ModuleID: identityID, Required: true}},
				}, nil
			},
		},
	}
	svc := f.service()

	err := svc.DetachModule(writerCtx(), objID, domain.ModuleIdentity)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if f.objects.detachCalls != 0 {
		t.Errorf("detach calls = %d, want 0", f.objects.detachCalls)
	}
}

func TestDetachModule_OptionalBinding(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	typeID := uuid.New()
	stageID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID:           objID,
					ObjectTypeID: typeID,
					Modules: []domain.AttachedModule{
						{ModuleID: stageID, ModuleName: domain.ModuleStage, Data: domain.Record{"stage": "lead"}},
					},
				}, nil
			},
			DetachModuleFunc: func(_ context.Context, objectID, moduleID uuid.UUID) error {
				return nil
			},
		},
		modules: &moduleRepoMock{
			GetByNameFunc: func(_ context.Context, name string) (*domain.ModuleDefinition, error) {
				return stageModule(stageID), nil
			},
		},
		types: &typeRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
				return &domain.ObjectTypeDefinition{
					ID:      typeID,
					Modules: []domain.ModuleBinding{{ModuleID: stageID, Required: false}},
				}, nil
			},
		},
	}
	svc := f.service()

	if err := svc.DetachModule(writerCtx(), objID, domain.ModuleStage); err != nil {
		t.Fatalf("DetachModule() = %v", err)
	}
	if f.objects.detachCalls != 1 {
		t.Errorf("detach calls = %d, want 1", f.objects.detachCalls)
	}
	if f.timeline.count() != 1 {
		t.Errorf("timeline events = %d, want 1", f.timeline.count())
	}
	if f.audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", f.audit.count())
	}
}

func TestDeleteObject_AuditSnapshot(t *testing.T) {
	t.Parallel()

	objID := uuid.New()

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{
					ID: objID,
					Modules: []domain.AttachedModule{
						{ModuleName: domain.ModuleIdentity, Data: domain.Record{"name": "Ada"}},
					},
				}, nil
			},
			DeleteFunc: func(_ context.Context, id uuid.UUID) error { return nil },
		},
	}
	svc := f.service()

	if err := svc.DeleteObject(writerCtx(), objID); err != nil {
		t.Fatalf("DeleteObject() = %v", err)
	}
	if f.audit.count() != 1 {
		t.Fatalf("audit records = %d, want 1", f.audit.count())
	}
	old := f.audit.records[0].OldValues
	mods, ok := old["modules"].(map[string]any)
	if !ok {
		t.Fatalf("snapshot missing modules: %v", old)
	}
	if _, ok := mods[domain.ModuleIdentity]; !ok {
		t.Errorf("snapshot missing identity data: %v", mods)
	}
}

func TestRunProcessors_ForwardsResults(t *testing.T) {
	t.Parallel()

	objID := uuid.New()
	want := []processor.Result{
		{Processor: "revenue", Success: true, Output: map[string]any{"weighted_value": 500.0}},
		{Processor: "health", Success: false, Error: "boom"},
	}

	f := &fixture{
		objects: &objectRepoMock{
			GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
				return &domain.ObjectInstance{ID: objID}, nil
			},
		},
		runner: &processorRunnerMock{
			RunFunc: func(ctx context.Context, pc *processor.Context) []processor.Result {
				if _, ok := ctx.Deadline(); !ok {
					t.Error("processor run context has no deadline")
				}
				return want
			},
		},
	}
	svc := f.service()

	got, err := svc.RunProcessors(writerCtx(), objID)
	if err != nil {
		t.Fatalf("RunProcessors() = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("results = %d, want %d", len(got), len(want))
	}
	if got[0].Processor != "revenue" || !got[0].Success {
		t.Errorf("first result = %+v", got[0])
	}
}
