package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/service/objecttype"
)

// typeService defines the minimal interface needed by TypeHandler.
type typeService interface {
	CreateType(ctx context.Context, input objecttype.CreateTypeInput) (*domain.ObjectTypeDefinition, error)
	UpdateType(ctx context.Context, input objecttype.UpdateTypeInput) (*domain.ObjectTypeDefinition, error)
	DeleteType(ctx context.Context, id uuid.UUID) error
	GetType(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error)
	ListTypes(ctx context.Context) ([]*domain.ObjectTypeDefinition, error)

	CreateSchemaRelation(ctx context.Context, input objecttype.CreateSchemaRelationInput) (*domain.SchemaRelationDefinition, error)
	ListSchemaRelations(ctx context.Context, typeID *uuid.UUID) ([]*domain.SchemaRelationDefinition, error)
	UpdateSchemaRelation(ctx context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error)
	DeleteSchemaRelation(ctx context.Context, id uuid.UUID) error
}

// TypeHandler serves object type and schema relation REST endpoints.
type TypeHandler struct {
	svc typeService
	log *slog.Logger
}

// NewTypeHandler creates a TypeHandler.
func NewTypeHandler(svc typeService, logger *slog.Logger) *TypeHandler {
	return &TypeHandler{svc: svc, log: logger.With("handler", "object_types")}
}

type bindingRequest struct {
	ModuleID string `json:"module_id"`
	Required bool   `json:"required"`
	Position int    `json:"position"`
}

type createTypeRequest struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Description *string          `json:"description,omitempty"`
	Icon        *string          `json:"icon,omitempty"`
	Color       *string          `json:"color,omitempty"`
	Modules     []bindingRequest `json:"modules"`
}

type updateTypeRequest struct {
	DisplayName *string          `json:"display_name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Icon        *string          `json:"icon,omitempty"`
	Color       *string          `json:"color,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	Modules     []bindingRequest `json:"modules,omitempty"`
}

type bindingResponse struct {
	ModuleID string `json:"module_id"`
	Required bool   `json:"required"`
	Position int    `json:"position"`
}

type typeResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Description *string           `json:"description,omitempty"`
	Icon        *string           `json:"icon,omitempty"`
	Color       *string           `json:"color,omitempty"`
	IsActive    bool              `json:"is_active"`
	Modules     []bindingResponse `json:"modules"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toTypeResponse(def *domain.ObjectTypeDefinition) typeResponse {
	bindings := make([]bindingResponse, 0, len(def.Modules))
	for _, b := range def.Modules {
		bindings = append(bindings, bindingResponse{
			ModuleID: b.ModuleID.String(),
			Required: b.Required,
			Position: b.Position,
		})
	}
	return typeResponse{
		ID:          def.ID.String(),
		Name:        def.Name,
		DisplayName: def.DisplayName,
		Description: def.Description,
		Icon:        def.Icon,
		Color:       def.Color,
		IsActive:    def.IsActive,
		Modules:     bindings,
		CreatedAt:   def.CreatedAt,
		UpdatedAt:   def.UpdatedAt,
	}
}

// toBindingInputs converts request bindings. Unparsable module ids map to
// uuid.Nil so input validation reports them with a field position.
func toBindingInputs(reqs []bindingRequest) []objecttype.BindingInput {
	if reqs == nil {
		return nil
	}
	out := make([]objecttype.BindingInput, 0, len(reqs))
	for _, b := range reqs {
		id, _ := uuid.Parse(b.ModuleID)
		out = append(out, objecttype.BindingInput{
			ModuleID: id,
			Required: b.Required,
			Position: b.Position,
		})
	}
	return out
}

// Create handles POST /api/v1/object-types.
func (h *TypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.svc.CreateType(r.Context(), objecttype.CreateTypeInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		Modules:     toBindingInputs(req.Modules),
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTypeResponse(def))
}

// List handles GET /api/v1/object-types.
func (h *TypeHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.svc.ListTypes(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]typeResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, toTypeResponse(def))
	}
	writeJSON(w, http.StatusOK, map[string]any{"object_types": out})
}

// Get handles GET /api/v1/object-types/{id}.
func (h *TypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object type id")
		return
	}

	def, err := h.svc.GetType(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTypeResponse(def))
}

// Update handles PATCH /api/v1/object-types/{id}.
func (h *TypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object type id")
		return
	}

	var req updateTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.svc.UpdateType(r.Context(), objecttype.UpdateTypeInput{
		TypeID:      id,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Icon:        req.Icon,
		Color:       req.Color,
		IsActive:    req.IsActive,
		Modules:     toBindingInputs(req.Modules),
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTypeResponse(def))
}

// Delete handles DELETE /api/v1/object-types/{id}.
func (h *TypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object type id")
		return
	}

	if err := h.svc.DeleteType(r.Context(), id); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type createSchemaRelationRequest struct {
	SourceTypeID    string         `json:"source_type_id"`
	TargetTypeID    string         `json:"target_type_id"`
	RelationType    string         `json:"relation_type"`
	SourceFieldName string         `json:"source_field_name"`
	TargetFieldName string         `json:"target_field_name"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type schemaRelationResponse struct {
	ID              string         `json:"id"`
	SourceTypeID    string         `json:"source_type_id"`
	TargetTypeID    string         `json:"target_type_id"`
	RelationType    string         `json:"relation_type"`
	SourceFieldName string         `json:"source_field_name"`
	TargetFieldName string         `json:"target_field_name"`
	IsActive        bool           `json:"is_active"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func toSchemaRelationResponse(def *domain.SchemaRelationDefinition) schemaRelationResponse {
	return schemaRelationResponse{
		ID:              def.ID.String(),
		SourceTypeID:    def.SourceTypeID.String(),
		TargetTypeID:    def.TargetTypeID.String(),
		RelationType:    def.RelationType.String(),
		SourceFieldName: def.SourceFieldName,
		TargetFieldName: def.TargetFieldName,
		IsActive:        def.IsActive,
		Metadata:        def.Metadata,
		CreatedAt:       def.CreatedAt,
	}
}

// CreateSchemaRelation handles POST /api/v1/schema-relations.
func (h *TypeHandler) CreateSchemaRelation(w http.ResponseWriter, r *http.Request) {
	var req createSchemaRelationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceID, _ := uuid.Parse(req.SourceTypeID)
	targetID, _ := uuid.Parse(req.TargetTypeID)

	def, err := h.svc.CreateSchemaRelation(r.Context(), objecttype.CreateSchemaRelationInput{
		SourceTypeID:    sourceID,
		TargetTypeID:    targetID,
		RelationType:    domain.SchemaRelationType(req.RelationType),
		SourceFieldName: req.SourceFieldName,
		TargetFieldName: req.TargetFieldName,
		Metadata:        req.Metadata,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSchemaRelationResponse(def))
}

// ListSchemaRelations handles GET /api/v1/schema-relations. An optional
// object_type_id query parameter narrows the list to relations touching
// that type.
func (h *TypeHandler) ListSchemaRelations(w http.ResponseWriter, r *http.Request) {
	var typeID *uuid.UUID
	if raw := r.URL.Query().Get("object_type_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid object_type_id")
			return
		}
		typeID = &id
	}

	defs, err := h.svc.ListSchemaRelations(r.Context(), typeID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]schemaRelationResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, toSchemaRelationResponse(def))
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema_relations": out})
}

type updateSchemaRelationRequest struct {
	IsActive *bool `json:"is_active"`
}

// UpdateSchemaRelation handles PATCH /api/v1/schema-relations/{id}.
func (h *TypeHandler) UpdateSchemaRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid schema relation id")
		return
	}

	var req updateSchemaRelationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	def, err := h.svc.UpdateSchemaRelation(r.Context(), id, *req.IsActive)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSchemaRelationResponse(def))
}

// DeleteSchemaRelation handles DELETE /api/v1/schema-relations/{id}.
func (h *TypeHandler) DeleteSchemaRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid schema relation id")
		return
	}

	if err := h.svc.DeleteSchemaRelation(r.Context(), id); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
