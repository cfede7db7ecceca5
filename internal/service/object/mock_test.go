package object

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/processor"
)

type objectRepoMock struct {
	CreateFunc       func(ctx context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error)
	GetByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error)
	ListFunc         func(ctx context.Context, f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error)
	TouchFunc        func(ctx context.Context, id uuid.UUID) error
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
	GetModuleFunc    func(ctx context.Context, objectID, moduleID uuid.UUID) (*domain.AttachedModule, error)
	UpsertModuleFunc func(ctx context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error)
	DetachModuleFunc func(ctx context.Context, objectID, moduleID uuid.UUID) error

	mu          sync.Mutex
	upsertCalls int
	deleteCalls int
	detachCalls int
}

func (m *objectRepoMock) Create(ctx context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error) {
	return m.CreateFunc(ctx, obj)
}

func (m *objectRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *objectRepoMock) List(ctx context.Context, f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error) {
	return m.ListFunc(ctx, f)
}

func (m *objectRepoMock) Touch(ctx context.Context, id uuid.UUID) error {
	if m.TouchFunc == nil {
		return nil
	}
	return m.TouchFunc(ctx, id)
}

func (m *objectRepoMock) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.deleteCalls++
	m.mu.Unlock()
	return m.DeleteFunc(ctx, id)
}

func (m *objectRepoMock) GetModule(ctx context.Context, objectID, moduleID uuid.UUID) (*domain.AttachedModule, error) {
	return m.GetModuleFunc(ctx, objectID, moduleID)
}

func (m *objectRepoMock) UpsertModule(ctx context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error) {
	m.mu.Lock()
	m.upsertCalls++
	m.mu.Unlock()
	return m.UpsertModuleFunc(ctx, objectID, moduleID, data)
}

func (m *objectRepoMock) DetachModule(ctx context.Context, objectID, moduleID uuid.UUID) error {
	m.mu.Lock()
	m.detachCalls++
	m.mu.Unlock()
	return m.DetachModuleFunc(ctx, objectID, moduleID)
}

type typeRepoMock struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error)
}

func (m *typeRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
	return m.GetByIDFunc(ctx, id)
}

type moduleRepoMock struct {
	GetByIDFunc   func(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
	GetByNameFunc func(ctx context.Context, name string) (*domain.ModuleDefinition, error)
}

func (m *moduleRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *moduleRepoMock) GetByName(ctx context.Context, name string) (*domain.ModuleDefinition, error) {
	return m.GetByNameFunc(ctx, name)
}

type timelineRepoMock struct {
	mu     sync.Mutex
	events []domain.TimelineEvent
	err    error
}

func (m *timelineRepoMock) Append(ctx context.Context, ev *domain.TimelineEvent) (*domain.TimelineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.events = append(m.events, *ev)
	return ev, nil
}

func (m *timelineRepoMock) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type txManagerMock struct{}

func (txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type auditRecorderMock struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func (m *auditRecorderMock) Record(rec domain.AuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *auditRecorderMock) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// denyOracle denies the named module names for reading, writing or both.
type denyOracle struct {
	denyRead  map[uuid.UUID]bool
	denyWrite map[uuid.UUID]bool
}

func (o denyOracle) ModulePermission(_ context.Context, moduleID, _ uuid.UUID) (bool, bool) {
	return !o.denyRead[moduleID], !o.denyWrite[moduleID]
}

type processorRunnerMock struct {
	RunFunc         func(ctx context.Context, pc *processor.Context) []processor.Result
	EligibleForFunc func(attached map[string]domain.Record) []processor.Processor
}

func (m *processorRunnerMock) Run(ctx context.Context, pc *processor.Context) []processor.Result {
	return m.RunFunc(ctx, pc)
}

func (m *processorRunnerMock) EligibleFor(attached map[string]domain.Record) []processor.Processor {
	return m.EligibleForFunc(attached)
}
