package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/service/relation"
)

// relationService defines the minimal interface needed by RelationHandler.
type relationService interface {
	CreateRelation(ctx context.Context, input relation.CreateRelationInput) (*domain.InstanceRelation, error)
	ListForObject(ctx context.Context, objectID uuid.UUID) ([]domain.RelatedObject, error)
	DeleteRelation(ctx context.Context, id uuid.UUID) error
}

// RelationHandler serves instance relation REST endpoints.
type RelationHandler struct {
	svc relationService
	log *slog.Logger
}

// NewRelationHandler creates a RelationHandler.
func NewRelationHandler(svc relationService, logger *slog.Logger) *RelationHandler {
	return &RelationHandler{svc: svc, log: logger.With("handler", "relations")}
}

type createRelationRequest struct {
	FromObjectID string         `json:"from_object_id"`
	ToObjectID   string         `json:"to_object_id"`
	RelationType string         `json:"relation_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type relationResponse struct {
	ID           string         `json:"id"`
	FromObjectID string         `json:"from_object_id"`
	ToObjectID   string         `json:"to_object_id"`
	RelationType string         `json:"relation_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type relatedObjectResponse struct {
	Relation    relationResponse `json:"relation"`
	Direction   string           `json:"direction"`
	ObjectID    string           `json:"object_id"`
	DisplayName string           `json:"display_name"`
	TypeName    string           `json:"type_name"`
}

func toRelationResponse(rel *domain.InstanceRelation) relationResponse {
	return relationResponse{
		ID:           rel.ID.String(),
		FromObjectID: rel.FromObjectID.String(),
		ToObjectID:   rel.ToObjectID.String(),
		RelationType: rel.RelationType,
		Metadata:     rel.Metadata,
		CreatedAt:    rel.CreatedAt,
	}
}

// Create handles POST /api/v1/relations.
func (h *RelationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRelationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fromID, _ := uuid.Parse(req.FromObjectID)
	toID, _ := uuid.Parse(req.ToObjectID)

	rel, err := h.svc.CreateRelation(r.Context(), relation.CreateRelationInput{
		FromObjectID: fromID,
		ToObjectID:   toID,
		RelationType: req.RelationType,
		Metadata:     req.Metadata,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRelationResponse(rel))
}

// ListForObject handles GET /api/v1/objects/{id}/relations. Each edge comes
// back annotated with the counterpart's display name and type name.
func (h *RelationHandler) ListForObject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	related, err := h.svc.ListForObject(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]relatedObjectResponse, 0, len(related))
	for _, rel := range related {
		out = append(out, relatedObjectResponse{
			Relation:    toRelationResponse(&rel.Relation),
			Direction:   string(rel.Direction),
			ObjectID:    rel.ObjectID.String(),
			DisplayName: rel.DisplayName,
			TypeName:    rel.TypeName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": out})
}

// Delete handles DELETE /api/v1/relations/{id}.
func (h *RelationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid relation id")
		return
	}

	if err := h.svc.DeleteRelation(r.Context(), id); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
