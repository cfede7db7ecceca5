// Package objecttype implements object type management: composing modules
// into typed templates and maintaining declarative schema relations between
// types.
package objecttype

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

type typeRepo interface {
	Create(ctx context.Context, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error)
	GetByName(ctx context.Context, name string) (*domain.ObjectTypeDefinition, error)
	List(ctx context.Context) ([]*domain.ObjectTypeDefinition, error)
	Update(ctx context.Context, id uuid.UUID, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error)
	ReplaceBindings(ctx context.Context, typeID uuid.UUID, bindings []domain.ModuleBinding) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type moduleRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
}

type schemaRelationRepo interface {
	CreateSchemaRelation(ctx context.Context, def *domain.SchemaRelationDefinition) (*domain.SchemaRelationDefinition, error)
	ListSchemaRelations(ctx context.Context, typeID uuid.UUID) ([]*domain.SchemaRelationDefinition, error)
	UpdateSchemaRelationActive(ctx context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error)
	DeleteSchemaRelation(ctx context.Context, id uuid.UUID) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type auditRecorder interface {
	Record(rec domain.AuditRecord)
}

const auditCategory = "object_types"

// Service provides object type and schema relation operations.
type Service struct {
	types     typeRepo
	modules   moduleRepo
	relations schemaRelationRepo
	tx        txManager
	audit     auditRecorder
	log       *slog.Logger
}

// NewService creates a new object type service.
func NewService(log *slog.Logger, types typeRepo, modules moduleRepo, relations schemaRelationRepo, tx txManager, audit auditRecorder) *Service {
	return &Service{
		types:     types,
		modules:   modules,
		relations: relations,
		tx:        tx,
		audit:     audit,
		log:       log.With("service", "objecttype"),
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
