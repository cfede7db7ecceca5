// Package object implements the object engine: typed instance lifecycle,
// per-module data writes validated against the module schemas, filtered
// listings and processor runs.
package object

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/processor"
	"github.com/substratehq/substrate/internal/schema"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

type objectRepo interface {
	Create(ctx context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error)
	List(ctx context.Context, f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error)
	Touch(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetModule(ctx context.Context, objectID, moduleID uuid.UUID) (*domain.AttachedModule, error)
	UpsertModule(ctx context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error)
	DetachModule(ctx context.Context, objectID, moduleID uuid.UUID) error
}

type typeRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error)
}

type moduleRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
	GetByName(ctx context.Context, name string) (*domain.ModuleDefinition, error)
}

type timelineRepo interface {
	Append(ctx context.Context, ev *domain.TimelineEvent) (*domain.TimelineEvent, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type auditRecorder interface {
	Record(rec domain.AuditRecord)
}

type processorRunner interface {
	Run(ctx context.Context, pc *processor.Context) []processor.Result
	EligibleFor(attached map[string]domain.Record) []processor.Processor
}

// PermissionOracle decides per-module visibility and writability. The engine
// consults it on every read and every module write; how permissions are
// evaluated is outside the core.
type PermissionOracle interface {
	ModulePermission(ctx context.Context, moduleID, objectTypeID uuid.UUID) (canRead, canWrite bool)
}

// AllowAllOracle grants read and write on every module. It is the default
// when no external permission system is plugged in.
type AllowAllOracle struct{}

func (AllowAllOracle) ModulePermission(ctx context.Context, moduleID, objectTypeID uuid.UUID) (bool, bool) {
	return true, true
}

const auditCategory = "objects"

// View is an object instance with its recomputed display name and the
// attachments the caller is allowed to see.
type View struct {
	Object      *domain.ObjectInstance `json:"object"`
	DisplayName string                 `json:"display_name"`
}

// Service provides object engine operations.
type Service struct {
	objects    objectRepo
	types      typeRepo
	modules    moduleRepo
	timeline   timelineRepo
	schemas    *schema.Cache
	oracle     PermissionOracle
	processors processorRunner
	tx         txManager
	audit      auditRecorder
	log        *slog.Logger

	processorTimeout time.Duration
}

// NewService creates a new object engine service. A nil oracle defaults to
// allow-all.
func NewService(
	log *slog.Logger,
	objects objectRepo,
	types typeRepo,
	modules moduleRepo,
	timeline timelineRepo,
	schemas *schema.Cache,
	oracle PermissionOracle,
	processors processorRunner,
	tx txManager,
	audit auditRecorder,
	processorTimeout time.Duration,
) *Service {
	if oracle == nil {
		oracle = AllowAllOracle{}
	}
	return &Service{
		objects:          objects,
		types:            types,
		modules:          modules,
		timeline:         timeline,
		schemas:          schemas,
		oracle:           oracle,
		processors:       processors,
		tx:               tx,
		audit:            audit,
		log:              log.With("service", "object"),
		processorTimeout: processorTimeout,
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

// filterVisible drops attachments the oracle denies reading. The object is
// mutated in place; callers own the instance.
func (s *Service) filterVisible(ctx context.Context, obj *domain.ObjectInstance) {
	visible := obj.Modules[:0]
	for _, m := range obj.Modules {
		canRead, _ := s.oracle.ModulePermission(ctx, m.ModuleID, obj.ObjectTypeID)
		if canRead {
			visible = append(visible, m)
		}
	}
	obj.Modules = visible
}

func (s *Service) view(obj *domain.ObjectInstance) View {
	return View{Object: obj, DisplayName: obj.DisplayName()}
}
