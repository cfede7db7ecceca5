package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/service/moduledef"
)

// moduleService defines the minimal interface needed by ModuleHandler.
type moduleService interface {
	CreateModule(ctx context.Context, input moduledef.CreateModuleInput) (*domain.ModuleDefinition, error)
	UpdateModule(ctx context.Context, input moduledef.UpdateModuleInput) (*domain.ModuleDefinition, error)
	DeleteModule(ctx context.Context, id uuid.UUID) error
	GetModule(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
	ListModules(ctx context.Context) ([]*domain.ModuleDefinition, error)
}

// ModuleHandler serves module registry REST endpoints.
type ModuleHandler struct {
	svc moduleService
	log *slog.Logger
}

// NewModuleHandler creates a ModuleHandler.
func NewModuleHandler(svc moduleService, logger *slog.Logger) *ModuleHandler {
	return &ModuleHandler{svc: svc, log: logger.With("handler", "modules")}
}

type createModuleRequest struct {
	Name        string                   `json:"name"`
	DisplayName string                   `json:"display_name"`
	Description *string                  `json:"description,omitempty"`
	Icon        *string                  `json:"icon,omitempty"`
	Schema      []domain.FieldDefinition `json:"schema"`
}

type updateModuleRequest struct {
	DisplayName *string                  `json:"display_name,omitempty"`
	Description *string                  `json:"description,omitempty"`
	Icon        *string                  `json:"icon,omitempty"`
	Schema      []domain.FieldDefinition `json:"schema,omitempty"`
}

type moduleResponse struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	DisplayName string                   `json:"display_name"`
	Description *string                  `json:"description,omitempty"`
	Icon        *string                  `json:"icon,omitempty"`
	Schema      []domain.FieldDefinition `json:"schema"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func toModuleResponse(def *domain.ModuleDefinition) moduleResponse {
	return moduleResponse{
		ID:          def.ID.String(),
		Name:        def.Name,
		DisplayName: def.DisplayName,
		Description: def.Description,
		Icon:        def.Icon,
		Schema:      def.Schema,
		CreatedAt:   def.CreatedAt,
		UpdatedAt:   def.UpdatedAt,
	}
}

// Create handles POST /api/v1/modules.
func (h *ModuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.svc.CreateModule(r.Context(), moduledef.CreateModuleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Icon:        req.Icon,
		Schema:      req.Schema,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toModuleResponse(def))
}

// List handles GET /api/v1/modules.
func (h *ModuleHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.svc.ListModules(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]moduleResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, toModuleResponse(def))
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": out})
}

// Get handles GET /api/v1/modules/{id}.
func (h *ModuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	def, err := h.svc.GetModule(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toModuleResponse(def))
}

// Update handles PATCH /api/v1/modules/{id}.
func (h *ModuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	var req updateModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := h.svc.UpdateModule(r.Context(), moduledef.UpdateModuleInput{
		ModuleID:    id,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Icon:        req.Icon,
		Schema:      req.Schema,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toModuleResponse(def))
}

// Delete handles DELETE /api/v1/modules/{id}.
func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid module id")
		return
	}

	if err := h.svc.DeleteModule(r.Context(), id); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
