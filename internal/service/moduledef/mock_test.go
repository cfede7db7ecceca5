package moduledef

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// moduleRepoMock is a hand-rolled func-field mock for the moduleRepo
// interface. Unset funcs fail loudly via nil dereference.
type moduleRepoMock struct {
	CreateFunc       func(ctx context.Context, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error)
	GetByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
	GetByNameFunc    func(ctx context.Context, name string) (*domain.ModuleDefinition, error)
	ListFunc         func(ctx context.Context) ([]*domain.ModuleDefinition, error)
	UpdateFunc       func(ctx context.Context, id uuid.UUID, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error)
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
	UsageCountFunc   func(ctx context.Context, id uuid.UUID) (int, error)
	BindingCountFunc func(ctx context.Context, id uuid.UUID) (int, error)

	mu          sync.Mutex
	createCalls int
	deleteCalls int
	updateCalls int
}

func (m *moduleRepoMock) Create(ctx context.Context, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	return m.CreateFunc(ctx, mod)
}

func (m *moduleRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *moduleRepoMock) GetByName(ctx context.Context, name string) (*domain.ModuleDefinition, error) {
	return m.GetByNameFunc(ctx, name)
}

func (m *moduleRepoMock) List(ctx context.Context) ([]*domain.ModuleDefinition, error) {
	return m.ListFunc(ctx)
}

func (m *moduleRepoMock) Update(ctx context.Context, id uuid.UUID, mod *domain.ModuleDefinition) (*domain.ModuleDefinition, error) {
	m.mu.Lock()
	m.updateCalls++
	m.mu.Unlock()
	return m.UpdateFunc(ctx, id, mod)
}

func (m *moduleRepoMock) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.deleteCalls++
	m.mu.Unlock()
	return m.DeleteFunc(ctx, id)
}

func (m *moduleRepoMock) UsageCount(ctx context.Context, id uuid.UUID) (int, error) {
	return m.UsageCountFunc(ctx, id)
}

func (m *moduleRepoMock) BindingCount(ctx context.Context, id uuid.UUID) (int, error) {
	return m.BindingCountFunc(ctx, id)
}

// auditRecorderMock captures records synchronously.
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
