package marketplace

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// inMemoryStore fakes the object and relation repos with real maps so the
// workflow tests can assert on what actually got written.
type inMemoryStore struct {
	mu        sync.Mutex
	objects   map[uuid.UUID]*domain.ObjectInstance
	relations []domain.InstanceRelation
	modules   map[string]*domain.ModuleDefinition
	types     map[string]*domain.ObjectTypeDefinition

	listFunc func(f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error)
}

func newStore() *inMemoryStore {
	return &inMemoryStore{
		objects: make(map[uuid.UUID]*domain.ObjectInstance),
		modules: make(map[string]*domain.ModuleDefinition),
		types:   make(map[string]*domain.ObjectTypeDefinition),
	}
}

func (s *inMemoryStore) addModule(name string, fields ...domain.FieldDefinition) *domain.ModuleDefinition {
	def := &domain.ModuleDefinition{ID: uuid.New(), Name: name, Schema: fields}
	s.modules[name] = def
	return def
}

func (s *inMemoryStore) addType(name string, bindings ...domain.ModuleBinding) *domain.ObjectTypeDefinition {
	def := &domain.ObjectTypeDefinition{ID: uuid.New(), Name: name, IsActive: true, Modules: bindings}
	s.types[name] = def
	return def
}

func (s *inMemoryStore) addObject(typeID uuid.UUID, createdBy uuid.UUID, ownerID *uuid.UUID, modules map[string]domain.Record) *domain.ObjectInstance {
	obj := &domain.ObjectInstance{
		ID:           uuid.New(),
		ObjectTypeID: typeID,
		OwnerID:      ownerID,
		CreatedBy:    createdBy,
	}
	for name, data := range modules {
		def := s.modules[name]
		obj.Modules = append(obj.Modules, domain.AttachedModule{
			ID:         uuid.New(),
			ObjectID:   obj.ID,
			ModuleID:   def.ID,
			ModuleName: name,
			Data:       data,
		})
	}
	s.objects[obj.ID] = obj
	return obj
}

func (s *inMemoryStore) addRelation(from, to uuid.UUID, relType string) {
	s.relations = append(s.relations, domain.InstanceRelation{
		ID: uuid.New(), FromObjectID: from, ToObjectID: to, RelationType: relType,
	})
}

// objectRepo

func (s *inMemoryStore) Create(_ context.Context, obj *domain.ObjectInstance) (*domain.ObjectInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *obj
	out.ID = uuid.New()
	s.objects[out.ID] = &out
	return &out, nil
}

func (s *inMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ObjectInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *obj
	return &cp, nil
}

func (s *inMemoryStore) List(_ context.Context, f domain.ObjectFilter) ([]*domain.ObjectInstance, int, error) {
	if s.listFunc != nil {
		return s.listFunc(f)
	}
	return nil, 0, nil
}

func (s *inMemoryStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.ObjectInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ObjectInstance, 0, len(ids))
	for _, id := range ids {
		if obj, ok := s.objects[id]; ok {
			cp := *obj
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *inMemoryStore) UpsertModule(_ context.Context, objectID, moduleID uuid.UUID, data domain.Record) (*domain.AttachedModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	var name string
	for _, def := range s.modules {
		if def.ID == moduleID {
			name = def.Name
		}
	}

	for i, m := range obj.Modules {
		if m.ModuleID == moduleID {
			obj.Modules[i].Data = data
			att := obj.Modules[i]
			return &att, nil
		}
	}
	att := domain.AttachedModule{
		ID: uuid.New(), ObjectID: objectID, ModuleID: moduleID, ModuleName: name, Data: data,
	}
	obj.Modules = append(obj.Modules, att)
	return &att, nil
}

// typeRepo

func (s *inMemoryStore) GetByName(_ context.Context, name string) (*domain.ObjectTypeDefinition, error) {
	if def, ok := s.types[name]; ok {
		return def, nil
	}
	return nil, domain.ErrNotFound
}

// moduleRepo (wrapped so the method set does not clash with typeRepo)

type moduleStore struct{ *inMemoryStore }

func (s moduleStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
	for _, def := range s.modules {
		if def.ID == id {
			return def, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s moduleStore) GetByName(_ context.Context, name string) (*domain.ModuleDefinition, error) {
	if def, ok := s.modules[name]; ok {
		return def, nil
	}
	return nil, domain.ErrNotFound
}

// relationRepo

type relationStore struct{ *inMemoryStore }

func (s relationStore) Create(_ context.Context, rel *domain.InstanceRelation) (*domain.InstanceRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *rel
	out.ID = uuid.New()
	s.inMemoryStore.relations = append(s.inMemoryStore.relations, out)
	return &out, nil
}

func (s relationStore) ListForObject(_ context.Context, objectID uuid.UUID) ([]domain.InstanceRelation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InstanceRelation
	for _, rel := range s.inMemoryStore.relations {
		if rel.FromObjectID == objectID || rel.ToObjectID == objectID {
			out = append(out, rel)
		}
	}
	return out, nil
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
