package domain

import (
	"time"

	"github.com/google/uuid"
)

// ModuleBinding attaches a module to an object type. Required bindings must
// be present at object creation and cannot be detached afterwards.
type ModuleBinding struct {
	ModuleID uuid.UUID
	Required bool
	Position int
}

// ObjectTypeDefinition composes modules into a typed template.
type ObjectTypeDefinition struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Description *string
	Icon        *string
	Color       *string
	IsActive    bool
	Modules     []ModuleBinding
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BindingFor returns the binding for the given module id, if present.
func (t *ObjectTypeDefinition) BindingFor(moduleID uuid.UUID) (ModuleBinding, bool) {
	for _, b := range t.Modules {
		if b.ModuleID == moduleID {
			return b, true
		}
	}
	return ModuleBinding{}, false
}

// SchemaRelationType is the declared cardinality of a schema relation.
type SchemaRelationType string

const (
	SchemaRelationOneToMany  SchemaRelationType = "one_to_many"
	SchemaRelationManyToOne  SchemaRelationType = "many_to_one"
	SchemaRelationManyToMany SchemaRelationType = "many_to_many"
)

func (t SchemaRelationType) String() string { return string(t) }

func (t SchemaRelationType) IsValid() bool {
	switch t {
	case SchemaRelationOneToMany, SchemaRelationManyToOne, SchemaRelationManyToMany:
		return true
	}
	return false
}

// SchemaRelationDefinition is a declarative, cardinality-typed relation
// between two object types. It documents intended navigation for UI and
// tooling; it does not create storage and is never enforced against
// instance relations.
type SchemaRelationDefinition struct {
	ID              uuid.UUID
	SourceTypeID    uuid.UUID
	TargetTypeID    uuid.UUID
	RelationType    SchemaRelationType
	SourceFieldName string
	TargetFieldName string
	IsActive        bool
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
