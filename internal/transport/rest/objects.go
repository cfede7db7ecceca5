package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/processor"
	"github.com/substratehq/substrate/internal/service/object"
)

// objectService defines the minimal interface needed by ObjectHandler.
type objectService interface {
	CreateObject(ctx context.Context, input object.CreateObjectInput) (object.View, error)
	GetObject(ctx context.Context, id uuid.UUID) (object.View, error)
	ListObjects(ctx context.Context, filter domain.ObjectFilter) ([]object.View, int, error)
	DeleteObject(ctx context.Context, id uuid.UUID) error

	UpdateModuleData(ctx context.Context, input object.UpdateModuleDataInput) (*domain.AttachedModule, error)
	AttachModule(ctx context.Context, input object.AttachModuleInput) (*domain.AttachedModule, error)
	DetachModule(ctx context.Context, objectID uuid.UUID, moduleName string) error

	RunProcessors(ctx context.Context, objectID uuid.UUID) ([]processor.Result, error)
	EligibleProcessors(ctx context.Context, objectID uuid.UUID) ([]processor.Spec, error)
}

// ObjectHandler serves object instance REST endpoints.
type ObjectHandler struct {
	svc objectService
	log *slog.Logger
}

// NewObjectHandler creates an ObjectHandler.
func NewObjectHandler(svc objectService, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{svc: svc, log: logger.With("handler", "objects")}
}

type createObjectRequest struct {
	ObjectTypeID string                   `json:"object_type_id"`
	OwnerID      *string                  `json:"owner_id,omitempty"`
	Modules      map[string]domain.Record `json:"modules"`
}

type attachedModuleResponse struct {
	ModuleID   string        `json:"module_id"`
	ModuleName string        `json:"module_name"`
	Data       domain.Record `json:"data"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type objectResponse struct {
	ID           string                   `json:"id"`
	ObjectTypeID string                   `json:"object_type_id"`
	OwnerID      *string                  `json:"owner_id,omitempty"`
	CreatedBy    string                   `json:"created_by"`
	DisplayName  string                   `json:"display_name"`
	Modules      []attachedModuleResponse `json:"modules"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

func toObjectResponse(v object.View) objectResponse {
	obj := v.Object
	modules := make([]attachedModuleResponse, 0, len(obj.Modules))
	for _, m := range obj.Modules {
		modules = append(modules, attachedModuleResponse{
			ModuleID:   m.ModuleID.String(),
			ModuleName: m.ModuleName,
			Data:       m.Data,
			UpdatedAt:  m.UpdatedAt,
		})
	}

	var ownerID *string
	if obj.OwnerID != nil {
		s := obj.OwnerID.String()
		ownerID = &s
	}

	return objectResponse{
		ID:           obj.ID.String(),
		ObjectTypeID: obj.ObjectTypeID.String(),
		OwnerID:      ownerID,
		CreatedBy:    obj.CreatedBy.String(),
		DisplayName:  v.DisplayName,
		Modules:      modules,
		CreatedAt:    obj.CreatedAt,
		UpdatedAt:    obj.UpdatedAt,
	}
}

// Create handles POST /api/v1/objects.
func (h *ObjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createObjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	typeID, _ := uuid.Parse(req.ObjectTypeID)
	var ownerID *uuid.UUID
	if req.OwnerID != nil {
		id, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid owner_id")
			return
		}
		ownerID = &id
	}

	view, err := h.svc.CreateObject(r.Context(), object.CreateObjectInput{
		ObjectTypeID: typeID,
		OwnerID:      ownerID,
		Modules:      req.Modules,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toObjectResponse(view))
}

// Get handles GET /api/v1/objects/{id}.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	view, err := h.svc.GetObject(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toObjectResponse(view))
}

type fieldFilterRequest struct {
	Module string `json:"module"`
	Field  string `json:"field"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

type searchObjectsRequest struct {
	ObjectTypeID *string              `json:"object_type_id,omitempty"`
	Search       *string              `json:"search,omitempty"`
	Filters      []fieldFilterRequest `json:"filters,omitempty"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
}

type searchObjectsResponse struct {
	Objects []objectResponse `json:"objects"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

// Search handles POST /api/v1/objects/search. Filters are AND-composed;
// pagination defaults apply when page or limit are omitted.
func (h *ObjectHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchObjectsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter := domain.ObjectFilter{
		Search: req.Search,
		Page:   req.Page,
		Limit:  req.Limit,
	}
	if req.ObjectTypeID != nil {
		id, err := uuid.Parse(*req.ObjectTypeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid object_type_id")
			return
		}
		filter.ObjectTypeID = &id
	}
	for _, f := range req.Filters {
		filter.Filters = append(filter.Filters, domain.FieldFilter{
			ModuleName: f.Module,
			FieldKey:   f.Field,
			Op:         domain.FilterOp(f.Op),
			Value:      f.Value,
		})
	}
	filter.Normalize()

	views, total, err := h.svc.ListObjects(r.Context(), filter)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]objectResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toObjectResponse(v))
	}
	writeJSON(w, http.StatusOK, searchObjectsResponse{
		Objects: out,
		Total:   total,
		Page:    filter.Page,
		Limit:   filter.Limit,
	})
}

// Delete handles DELETE /api/v1/objects/{id}.
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	if err := h.svc.DeleteObject(r.Context(), id); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type moduleDataRequest struct {
	Data domain.Record `json:"data"`
}

type attachModuleRequest struct {
	ModuleName string        `json:"module_name"`
	Data       domain.Record `json:"data,omitempty"`
}

func toAttachedModuleResponse(att *domain.AttachedModule) attachedModuleResponse {
	return attachedModuleResponse{
		ModuleID:   att.ModuleID.String(),
		ModuleName: att.ModuleName,
		Data:       att.Data,
		UpdatedAt:  att.UpdatedAt,
	}
}

// UpdateModuleData handles PUT /api/v1/objects/{id}/modules/{module}.
// The payload replaces the module's record wholesale.
func (h *ObjectHandler) UpdateModuleData(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	var req moduleDataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	att, err := h.svc.UpdateModuleData(r.Context(), object.UpdateModuleDataInput{
		ObjectID:   id,
		ModuleName: r.PathValue("module"),
		Data:       req.Data,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttachedModuleResponse(att))
}

// AttachModule handles POST /api/v1/objects/{id}/modules.
func (h *ObjectHandler) AttachModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	var req attachModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	att, err := h.svc.AttachModule(r.Context(), object.AttachModuleInput{
		ObjectID:   id,
		ModuleName: req.ModuleName,
		Data:       req.Data,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAttachedModuleResponse(att))
}

// DetachModule handles DELETE /api/v1/objects/{id}/modules/{module}.
func (h *ObjectHandler) DetachModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	if err := h.svc.DetachModule(r.Context(), id, r.PathValue("module")); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "detached"})
}

type processorSpecResponse struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	RequiredModules []string `json:"required_modules,omitempty"`
	OptionalModules []string `json:"optional_modules,omitempty"`
}

// RunProcessors handles POST /api/v1/objects/{id}/processors/run. All
// eligible processors execute concurrently; per-processor failures come
// back in the result list rather than failing the request.
func (h *ObjectHandler) RunProcessors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	results, err := h.svc.RunProcessors(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// EligibleProcessors handles GET /api/v1/objects/{id}/processors.
func (h *ObjectHandler) EligibleProcessors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	specs, err := h.svc.EligibleProcessors(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]processorSpecResponse, 0, len(specs))
	for _, spec := range specs {
		out = append(out, processorSpecResponse{
			Name:            spec.Name,
			Description:     spec.Description,
			RequiredModules: spec.RequiredModules,
			OptionalModules: spec.OptionalModules,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"processors": out})
}
