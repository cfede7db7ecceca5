package objecttype

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

type typeRepoMock struct {
	CreateFunc          func(ctx context.Context, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error)
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error)
	GetByNameFunc       func(ctx context.Context, name string) (*domain.ObjectTypeDefinition, error)
	ListFunc            func(ctx context.Context) ([]*domain.ObjectTypeDefinition, error)
	UpdateFunc          func(ctx context.Context, id uuid.UUID, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error)
	ReplaceBindingsFunc func(ctx context.Context, typeID uuid.UUID, bindings []domain.ModuleBinding) error
	DeleteFunc          func(ctx context.Context, id uuid.UUID) error

	mu                   sync.Mutex
	replaceBindingsCalls int
	deleteCalls          int
}

func (m *typeRepoMock) Create(ctx context.Context, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
	return m.CreateFunc(ctx, def)
}

func (m *typeRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *typeRepoMock) GetByName(ctx context.Context, name string) (*domain.ObjectTypeDefinition, error) {
	return m.GetByNameFunc(ctx, name)
}

func (m *typeRepoMock) List(ctx context.Context) ([]*domain.ObjectTypeDefinition, error) {
	return m.ListFunc(ctx)
}

func (m *typeRepoMock) Update(ctx context.Context, id uuid.UUID, def *domain.ObjectTypeDefinition) (*domain.ObjectTypeDefinition, error) {
	return m.UpdateFunc(ctx, id, def)
}

func (m *typeRepoMock) ReplaceBindings(ctx context.Context, typeID uuid.UUID, bindings []domain.ModuleBinding) error {
	m.mu.Lock()
	m.replaceBindingsCalls++
	m.mu.Unlock()
	return m.ReplaceBindingsFunc(ctx, typeID, bindings)
}

func (m *typeRepoMock) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.deleteCalls++
	m.mu.Unlock()
	return m.DeleteFunc(ctx, id)
}

type moduleRepoMock struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error)
}

func (m *moduleRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
	return m.GetByIDFunc(ctx, id)
}

type schemaRelationRepoMock struct {
	CreateSchemaRelationFunc       func(ctx context.Context, def *domain.SchemaRelationDefinition) (*domain.SchemaRelationDefinition, error)
	ListSchemaRelationsFunc        func(ctx context.Context, typeID uuid.UUID) ([]*domain.SchemaRelationDefinition, error)
	UpdateSchemaRelationActiveFunc func(ctx context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error)
	DeleteSchemaRelationFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *schemaRelationRepoMock) CreateSchemaRelation(ctx context.Context, def *domain.SchemaRelationDefinition) (*domain.SchemaRelationDefinition, error) {
	return m.CreateSchemaRelationFunc(ctx, def)
}

func (m *schemaRelationRepoMock) ListSchemaRelations(ctx context.Context, typeID uuid.UUID) ([]*domain.SchemaRelationDefinition, error) {
	return m.ListSchemaRelationsFunc(ctx, typeID)
}

func (m *schemaRelationRepoMock) UpdateSchemaRelationActive(ctx context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error) {
	return m.UpdateSchemaRelationActiveFunc(ctx, id, isActive)
}

func (m *schemaRelationRepoMock) DeleteSchemaRelation(ctx context.Context, id uuid.UUID) error {
	return m.DeleteSchemaRelationFunc(ctx, id)
}

// txManagerMock runs the callback directly; commit and rollback behavior is
// covered by the postgres package tests.
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
