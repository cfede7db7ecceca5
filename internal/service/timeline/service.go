// Package timeline exposes the append-only per-object history. Events are
// written by the engine on mutations and by callers as notes; nothing ever
// updates or deletes them.
package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

type timelineRepo interface {
	Append(ctx context.Context, ev *domain.TimelineEvent) (*domain.TimelineEvent, error)
	ListForObject(ctx context.Context, objectID uuid.UUID, limit, offset int) ([]domain.TimelineEvent, int, error)
}

type objectRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error)
}

// Service provides timeline operations.
type Service struct {
	events  timelineRepo
	objects objectRepo
	log     *slog.Logger
}

// NewService creates a new timeline service.
func NewService(log *slog.Logger, events timelineRepo, objects objectRepo) *Service {
	return &Service{
		events:  events,
		objects: objects,
		log:     log.With("service", "timeline"),
	}
}

// AddNoteInput holds the parameters for appending a note event.
type AddNoteInput struct {
	ObjectID    uuid.UUID
	Title       string
	Description *string
	Metadata    map[string]any
}

// Validate checks all fields and collects all errors.
func (i AddNoteInput) Validate() error {
	var errs []domain.FieldError

	if i.ObjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "object_id", Message: "required"})
	}
	if strings.TrimSpace(i.Title) == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	}
	if len(i.Title) > 200 {
		errs = append(errs, domain.FieldError{Field: "title", Message: "max 200 characters"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// AddNote appends a note event to an object's history.
func (s *Service) AddNote(ctx context.Context, input AddNoteInput) (*domain.TimelineEvent, error) {
	actor, ok := ctxutil.ActorFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := actor.Require(domain.PermObjectsWrite); err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.objects.GetByID(ctx, input.ObjectID); err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	ev, err := s.events.Append(ctx, &domain.TimelineEvent{
		ObjectID:    input.ObjectID,
		EventType:   domain.EventNote,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Metadata:    input.Metadata,
		CreatedBy:   &actor.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("append note: %w", err)
	}

	s.log.InfoContext(ctx, "note added",
		slog.String("object_id", input.ObjectID.String()),
		slog.String("event_id", ev.ID.String()),
	)

	return ev, nil
}

// ListByObject returns an object's history newest-first, paginated, plus the
// total event count.
func (s *Service) ListByObject(ctx context.Context, objectID uuid.UUID, limit, offset int) ([]domain.TimelineEvent, int, error) {
	actor, ok := ctxutil.ActorFromCtx(ctx)
	if !ok {
		return nil, 0, domain.ErrUnauthorized
	}
	if err := actor.Require(domain.PermObjectsRead); err != nil {
		return nil, 0, err
	}
	if objectID == uuid.Nil {
		return nil, 0, domain.NewValidationError("object_id", "required")
	}

	events, total, err := s.events.ListForObject(ctx, objectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list timeline: %w", err)
	}

	return events, total, nil
}
