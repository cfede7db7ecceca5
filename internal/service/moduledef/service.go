// Package moduledef implements the module registry: CRUD over reusable
// field schemas with meta-schema validation and usage-based delete
// protection.
package moduledef

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

type moduleRepo interface {
	Create(ctx context.Context, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
	GetByName(ctx context.Context, name string) (*domain.ModuleDefinition, error)
	List(ctx context.Context) ([]*domain.ModuleDefinition, error)
	Update(ctx context.Context, id uuid.UUID, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UsageCount(ctx context.Context, id uuid.UUID) (int, error)
	BindingCount(ctx context.Context, id uuid.UUID) (int, error)
}

type auditRecorder interface {
	Record(rec domain.AuditRecord)
}

const auditCategory = "modules"

// Service provides module registry operations.
type Service struct {
	modules moduleRepo
	audit   auditRecorder
	log     *slog.Logger
}

// NewService creates a new module registry service.
func NewService(log *slog.Logger, modules moduleRepo, audit auditRecorder) *Service {
	return &Service{
		modules: modules,
		audit:   audit,
		log:     log.With("service", "moduledef"),
	}
}

// requireActor extracts the caller and checks the named permission.
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
