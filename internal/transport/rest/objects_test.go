package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/processor"
	"github.com/substratehq/substrate/internal/service/object"
)

type objectServiceMock struct {
	CreateObjectFunc       func(ctx context.Context, input object.CreateObjectInput) (object.View, error)
	GetObjectFunc          func(ctx context.Context, id uuid.UUID) (object.View, error)
	ListObjectsFunc        func(ctx context.Context, filter domain.ObjectFilter) ([]object.View, int, error)
	DeleteObjectFunc       func(ctx context.Context, id uuid.UUID) error
	UpdateModuleDataFunc   func(ctx context.Context, input object.UpdateModuleDataInput) (*domain.AttachedModule, error)
	AttachModuleFunc       func(ctx context.Context, input object.AttachModuleInput) (*domain.AttachedModule, error)
	DetachModuleFunc       func(ctx context.Context, objectID uuid.UUID, moduleName string) error
	RunProcessorsFunc      func(ctx context.Context, objectID uuid.UUID) ([]processor.Result, error)
	EligibleProcessorsFunc func(ctx context.Context, objectID uuid.UUID) ([]processor.Spec, error)
}

func (m *objectServiceMock) CreateObject(ctx context.Context, input object.CreateObjectInput) (object.View, error) {
	return m.CreateObjectFunc(ctx, input)
}

func (m *objectServiceMock) GetObject(ctx context.Context, id uuid.UUID) (object.View, error) {
	return m.GetObjectFunc(ctx, id)
}

func (m *objectServiceMock) ListObjects(ctx context.Context, filter domain.ObjectFilter) ([]object.View, int, error) {
	return m.ListObjectsFunc(ctx, filter)
}

func (m *objectServiceMock) DeleteObject(ctx context.Context, id uuid.UUID) error {
	return m.DeleteObjectFunc(ctx, id)
}

func (m *objectServiceMock) UpdateModuleData(ctx context.Context, input object.UpdateModuleDataInput) (*domain.AttachedModule, error) {
	return m.UpdateModuleDataFunc(ctx, input)
}

func (m *objectServiceMock) AttachModule(ctx context.Context, input object.AttachModuleInput) (*domain.AttachedModule, error) {
	return m.AttachModuleFunc(ctx, input)
}

func (m *objectServiceMock) DetachModule(ctx context.Context, objectID uuid.UUID, moduleName string) error {
	return m.DetachModuleFunc(ctx, objectID, moduleName)
}

func (m *objectServiceMock) RunProcessors(ctx context.Context, objectID uuid.UUID) ([]processor.Result, error) {
	return m.RunProcessorsFunc(ctx, objectID)
}

func (m *objectServiceMock) EligibleProcessors(ctx context.Context, objectID uuid.UUID) ([]processor.Spec, error) {
	return m.EligibleProcessorsFunc(ctx, objectID)
}

func objectMux(svc objectService) *http.ServeMux {
	h := NewObjectHandler(svc, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/objects", h.Create)
	mux.HandleFunc("POST /api/v1/objects/search", h.Search)
	mux.HandleFunc("GET /api/v1/objects/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/objects/{id}/modules/{module}", h.UpdateModuleData)
	mux.HandleFunc("DELETE /api/v1/objects/{id}/modules/{module}", h.DetachModule)
	mux.HandleFunc("POST /api/v1/objects/{id}/processors/run", h.RunProcessors)
	return mux
}

func testView(obj *domain.ObjectInstance) object.View {
	return object.View{Object: obj, DisplayName: obj.DisplayName()}
}

func TestCreateObject_Created(t *testing.T) {
	t.Parallel()

	typeID := uuid.New()
	svc := &objectServiceMock{
		CreateObjectFunc: func(_ context.Context, input object.CreateObjectInput) (object.View, error) {
			if input.ObjectTypeID != typeID {
				t.Errorf("expected type id %s, got %s", typeID, input.ObjectTypeID)
			}
			obj := &domain.ObjectInstance{
				ID:           uuid.New(),
				ObjectTypeID: input.ObjectTypeID,
				Modules: []domain.AttachedModule{{
					ModuleID:   uuid.New(),
					ModuleName: domain.ModuleIdentity,
					Data:       input.Modules[domain.ModuleIdentity],
				}},
			}
			return testView(obj), nil
		},
	}

	body := `{
		"object_type_id": "` + typeID.String() + `",
		"modules": {"identity": {"name": "Grace Hopper"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/objects", strings.NewReader(body))
	rec := httptest.NewRecorder()

	objectMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp objectResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.DisplayName != "Grace Hopper" {
		t.Errorf("expected display name from identity module, got %q", resp.DisplayName)
	}
	if len(resp.Modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(resp.Modules))
	}
}

func TestSearchObjects_ForwardsFilter(t *testing.T) {
	t.Parallel()

	svc := &objectServiceMock{
		ListObjectsFunc: func(_ context.Context, filter domain.ObjectFilter) ([]object.View, int, error) {
			if filter.Page != 1 || filter.Limit != domain.DefaultPageLimit {
				t.Errorf("expected normalized pagination, got page=%d limit=%d", filter.Page, filter.Limit)
			}
			if len(filter.Filters) != 1 {
				t.Fatalf("expected 1 filter, got %d", len(filter.Filters))
			}
			f := filter.Filters[0]
			if f.ModuleName != "monetary" || f.FieldKey != "amount" || f.Op != domain.OpGte {
				t.Errorf("unexpected filter: %+v", f)
			}
			return nil, 0, nil
		},
	}

	body := `{
		"filters": [{"module": "monetary", "field": "amount", "op": "gte", "value": 1000}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/objects/search", strings.NewReader(body))
	rec := httptest.NewRecorder()

	objectMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchObjectsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 0 || len(resp.Objects) != 0 {
		t.Errorf("expected empty result set, got %+v", resp)
	}
}

func TestUpdateModuleData_ForwardsModuleName(t *testing.T) {
	t.Parallel()

	objectID := uuid.New()
	svc := &objectServiceMock{
		UpdateModuleDataFunc: func(_ context.Context, input object.UpdateModuleDataInput) (*domain.AttachedModule, error) {
			if input.ObjectID != objectID {
				t.Errorf("expected object id %s, got %s", objectID, input.ObjectID)
			}
			if input.ModuleName != "stage" {
				t.Errorf("expected module stage, got %q", input.ModuleName)
			}
			return &domain.AttachedModule{
				ModuleID:   uuid.New(),
				ModuleName: input.ModuleName,
				Data:       input.Data,
			}, nil
		},
	}

	body := `{"data": {"stage": "won", "status": "active"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/objects/"+objectID.String()+"/modules/stage", strings.NewReader(body))
	rec := httptest.NewRecorder()

	objectMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp attachedModuleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data["stage"] != "won" {
		t.Errorf("expected stage won, got %v", resp.Data["stage"])
	}
}

func TestDetachModule_RequiredRejected(t *testing.T) {
	t.Parallel()

	svc := &objectServiceMock{
		DetachModuleFunc: func(_ context.Context, _ uuid.UUID, _ string) error {
			return domain.NewValidationError("module", "module is required by the object type")
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/objects/"+uuid.NewString()+"/modules/identity", nil)
	rec := httptest.NewRecorder()

	objectMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRunProcessors_ReturnsResults(t *testing.T) {
	t.Parallel()

	svc := &objectServiceMock{
		RunProcessorsFunc: func(_ context.Context, _ uuid.UUID) ([]processor.Result, error) {
			return []processor.Result{
				{Processor: "revenue_analyzer", Success: true, Output: map[string]any{"annual": 50400.0}},
				{Processor: "data_health", Success: false, Error: "timeout"},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/objects/"+uuid.NewString()+"/processors/run", nil)
	rec := httptest.NewRecorder()

	objectMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Results []processor.Result `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[1].Success {
		t.Error("expected second result to be a failure")
	}
}

func TestGetObject_Forbidden(t *testing.T) {
	t.Parallel()

	svc := &objectServiceMock{
		GetObjectFunc: func(_ context.Context, _ uuid.UUID) (object.View, error) {
			return object.View{}, domain.ErrForbidden
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/objects/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()

	objectMux(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}
