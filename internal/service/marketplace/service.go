// Package marketplace implements the proposal workflow on top of the object
// engine: publicly listed projects, proposal submission, and the
// accept/reject decision that may spawn a deal object.
package marketplace

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/schema"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

// Object type names the workflow binds to. The proposal type must be
// registered before submissions; the deal type is optional.
const (
	TypeProposal = "proposal"
	TypeDeal     = "deal"
)

type objectRepo interface {
	Create(ctx context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error)
	List(ctx context.Context, f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.ObjectInstance, error)
	UpsertModule(ctx context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error)
}

type typeRepo interface {
	GetByName(ctx context.Context, name string) (*domain.ObjectTypeDefinition, error)
}

type moduleRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
	GetByName(ctx context.Context, name string) (*domain.ModuleDefinition, error)
}

type relationRepo interface {
	Create(ctx context.Context, rel *domain.InstanceRelation) (*domain.InstanceRelation, error)
	ListForObject(ctx context.Context, objectID uuid.UUID) ([]domain.InstanceRelation, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type auditRecorder interface {
	Record(rec domain.AuditRecord)
}

const auditCategory = "marketplace"

// Listing is a publicly visible project.
type Listing struct {
	Object      *domain.ObjectInstance `json:"object"`
	DisplayName string                 `json:"display_name"`
}

// Service provides marketplace workflow operations.
type Service struct {
	objects   objectRepo
	types     typeRepo
	modules   moduleRepo
	relations relationRepo
	schemas   *schema.Cache
	tx        txManager
	audit     auditRecorder
	log       *slog.Logger
}

// NewService creates a new marketplace service.
func NewService(log *slog.Logger, objects objectRepo, types typeRepo, modules moduleRepo, relations relationRepo, schemas *schema.Cache, tx txManager, audit auditRecorder) *Service {
	return &Service{
		objects:   objects,
		types:     types,
		modules:   modules,
		relations: relations,
		schemas:   schemas,
		tx:        tx,
		audit:     audit,
		log:       log.With("service", "marketplace"),
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

// canDecide reports whether the actor may accept or reject proposals on the
// project: its owner if one is set, otherwise its creator.
func canDecide(actor domain.Actor, project *domain.ObjectInstance) bool {
	if project.OwnerID != nil {
		return *project.OwnerID == actor.UserID
	}
	return project.CreatedBy == actor.UserID
}
