package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/service/timeline"
)

// timelineService defines the minimal interface needed by TimelineHandler.
type timelineService interface {
	AddNote(ctx context.Context, input timeline.AddNoteInput) (*domain.TimelineEvent, error)
	ListByObject(ctx context.Context, objectID uuid.UUID, limit, offset int) ([]domain.TimelineEvent, int, error)
}

// TimelineHandler serves object history REST endpoints.
type TimelineHandler struct {
	svc timelineService
	log *slog.Logger
}

// NewTimelineHandler creates a TimelineHandler.
func NewTimelineHandler(svc timelineService, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{svc: svc, log: logger.With("handler", "timeline")}
}

type addNoteRequest struct {
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type timelineEventResponse struct {
	ID          string         `json:"id"`
	ObjectID    string         `json:"object_id"`
	EventType   string         `json:"event_type"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   *string        `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toTimelineEventResponse(ev domain.TimelineEvent) timelineEventResponse {
	var createdBy *string
	if ev.CreatedBy != nil {
		s := ev.CreatedBy.String()
		createdBy = &s
	}
	return timelineEventResponse{
		ID:          ev.ID.String(),
		ObjectID:    ev.ObjectID.String(),
		EventType:   ev.EventType.String(),
		Title:       ev.Title,
		Description: ev.Description,
		Metadata:    ev.Metadata,
		CreatedBy:   createdBy,
		CreatedAt:   ev.CreatedAt,
	}
}

// AddNote handles POST /api/v1/objects/{id}/notes.
func (h *TimelineHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	var req addNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := h.svc.AddNote(r.Context(), timeline.AddNoteInput{
		ObjectID:    id,
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTimelineEventResponse(*ev))
}

// List handles GET /api/v1/objects/{id}/timeline with limit/offset query
// parameters. Events come back newest-first.
func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid object id")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	events, total, err := h.svc.ListByObject(r.Context(), id, limit, offset)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]timelineEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, toTimelineEventResponse(ev))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"total":  total,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
