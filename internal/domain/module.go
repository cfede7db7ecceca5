package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldType enumerates the value types a module field can declare.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeURL         FieldType = "url"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeDatetime    FieldType = "datetime"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
)

func (t FieldType) String() string { return string(t) }

func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypePhone, FieldTypeURL,
		FieldTypeTextarea, FieldTypeNumber, FieldTypeDate, FieldTypeDatetime,
		FieldTypeBoolean, FieldTypeSelect, FieldTypeMultiselect:
		return true
	}
	return false
}

// SelectOption is one allowed value of a select/multiselect field.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// FieldDefinition describes a single field of a module schema.
// Field order is significant for display, not for validation.
type FieldDefinition struct {
	Key      string         `json:"key"`
	Type     FieldType      `json:"type"`
	Label    string         `json:"label"`
	Required bool           `json:"required,omitempty"`
	Default  any            `json:"default,omitempty"`
	Options  []SelectOption `json:"options,omitempty"`
	Min      *float64       `json:"min,omitempty"`
	Max      *float64       `json:"max,omitempty"`
}

// ModuleDefinition is a named, reusable field schema that can be attached
// to objects. Deletion is rejected while any object still carries its data.
type ModuleDefinition struct {
	ID          uuid.UUID
	Name        string
	DisplayName string
	Description *string
	Icon        *string
	Schema      []FieldDefinition
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Well-known module names the engine gives special meaning to.
// Everything else about a module is opaque to the core.
const (
	ModuleIdentity      = "identity"
	ModuleOrganization  = "organization"
	ModuleMonetary      = "monetary"
	ModuleStage         = "stage"
	ModulePublicProject = "public_project"
	ModuleProposal      = "proposal_status"
)
