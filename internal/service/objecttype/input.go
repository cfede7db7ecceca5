package objecttype

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// BindingInput declares one module on an object type.
type BindingInput struct {
	ModuleID uuid.UUID
	Required bool
	Position int
}

// CreateTypeInput holds the parameters for defining an object type.
type CreateTypeInput struct {
	Name        string
	DisplayName string
	Description *string
	Icon        *string
	Color       *string
	Modules     []BindingInput
}

// Validate checks all fields and collects all errors. Module existence is
// checked separately against the registry.
func (i CreateTypeInput) Validate() error {
	var errs []domain.FieldError

	name := strings.TrimSpace(i.Name)
	if name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	} else if !slugPattern.MatchString(name) {
		errs = append(errs, domain.FieldError{Field: "name", Message: "must be a lowercase slug (a-z, 0-9, _)"})
	}
	if len(name) > 64 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "max 64 characters"})
	}

	if strings.TrimSpace(i.DisplayName) == "" {
		errs = append(errs, domain.FieldError{Field: "display_name", Message: "required"})
	}
	if len(i.DisplayName) > 100 {
		errs = append(errs, domain.FieldError{Field: "display_name", Message: "max 100 characters"})
	}

	errs = append(errs, validateBindings(i.Modules)...)

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// UpdateTypeInput holds the parameters for updating an object type. The name
// is immutable; a nil field means "don't change". A non-nil Modules slice
// replaces the whole binding set.
type UpdateTypeInput struct {
	TypeID      uuid.UUID
	DisplayName *string
	Description *string
	Icon        *string
	Color       *string
	IsActive    *bool
	Modules     []BindingInput // nil = keep current bindings
}

// Validate checks all fields and collects all errors.
func (i UpdateTypeInput) Validate() error {
	var errs []domain.FieldError

	if i.TypeID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "type_id", Message: "required"})
	}
	if i.DisplayName != nil {
		if strings.TrimSpace(*i.DisplayName) == "" {
			errs = append(errs, domain.FieldError{Field: "display_name", Message: "required"})
		}
		if len(*i.DisplayName) > 100 {
			errs = append(errs, domain.FieldError{Field: "display_name", Message: "max 100 characters"})
		}
	}
	if i.DisplayName == nil && i.Description == nil && i.Icon == nil &&
		i.Color == nil && i.IsActive == nil && i.Modules == nil {
		errs = append(errs, domain.FieldError{Field: "input", Message: "at least one field must be provided"})
	}
	if i.Modules != nil {
		errs = append(errs, validateBindings(i.Modules)...)
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

func validateBindings(bindings []BindingInput) []domain.FieldError {
	var errs []domain.FieldError

	seen := make(map[uuid.UUID]bool, len(bindings))
	for idx, b := range bindings {
		field := fmt.Sprintf("modules[%d]", idx)
		if b.ModuleID == uuid.Nil {
			errs = append(errs, domain.FieldError{Field: field, Message: "module_id required"})
			continue
		}
		if seen[b.ModuleID] {
			errs = append(errs, domain.FieldError{Field: field, Message: "duplicate module"})
		}
		seen[b.ModuleID] = true
	}

	return errs
}

// CreateSchemaRelationInput declares a typed relation between two object
// types.
type CreateSchemaRelationInput struct {
	SourceTypeID    uuid.UUID
	TargetTypeID    uuid.UUID
	RelationType    domain.SchemaRelationType
	SourceFieldName string
	TargetFieldName string
	Metadata        map[string]any
}

// Validate checks all fields and collects all errors.
func (i CreateSchemaRelationInput) Validate() error {
	var errs []domain.FieldError

	if i.SourceTypeID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "source_type_id", Message: "required"})
	}
	if i.TargetTypeID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "target_type_id", Message: "required"})
	}
	if !i.RelationType.IsValid() {
		errs = append(errs, domain.FieldError{Field: "relation_type", Message: "must be one_to_many, many_to_one or many_to_many"})
	}
	if strings.TrimSpace(i.SourceFieldName) == "" {
		errs = append(errs, domain.FieldError{Field: "source_field_name", Message: "required"})
	}
	if strings.TrimSpace(i.TargetFieldName) == "" {
		errs = append(errs, domain.FieldError{Field: "target_field_name", Message: "required"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}
