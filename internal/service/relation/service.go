// Package relation implements ad-hoc links between object instances. Edges
// are free-form typed and deliberately unchecked against schema relation
// declarations.
package relation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

type relationRepo interface {
	Create(ctx context.Context, rel *domain.InstanceRelation) (*domain.InstanceRelation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InstanceRelation, error)
	ListForObject(ctx context.Context, objectID uuid.UUID) ([]domain.InstanceRelation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type objectRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.ObjectInstance, error)
}

type typeRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error)
}

type timelineRepo interface {
	Append(ctx context.Context, ev *domain.TimelineEvent) (*domain.TimelineEvent, error)
}

type auditRecorder interface {
	Record(rec domain.AuditRecord)
}

const auditCategory = "relations"

// Service provides instance relation operations.
type Service struct {
	relations relationRepo
	objects   objectRepo
	types     typeRepo
	timeline  timelineRepo
	audit     auditRecorder
	log       *slog.Logger
}

// NewService creates a new relation service.
func NewService(log *slog.Logger, relations relationRepo, objects objectRepo, types typeRepo, timeline timelineRepo, audit auditRecorder) *Service {
	return &Service{
		relations: relations,
		objects:   objects,
		types:     types,
		timeline:  timeline,
		audit:     audit,
		log:       log.With("service", "relation"),
	}
}

func requireActor(ctx context.Context, perm string) (domain.Actor, error) {
	actor, ok := ctxutil.ActorFromCtx(ctx)
	if !ok {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	if err := actor.Require(perm); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}

// appendEvent writes a timeline event, logging instead of failing.
func (s *Service) appendEvent(ctx context.Context, ev *domain.TimelineEvent) {
	if _, err := s.timeline.Append(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "timeline append failed",
			slog.String("object_id", ev.ObjectID.String()),
			slog.String("event_type", ev.EventType.String()),
			slog.Any("error", err),
		)
	}
}
