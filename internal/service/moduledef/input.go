package moduledef

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// CreateModuleInput holds the parameters for defining a module.
type CreateModuleInput struct {
	Name        string
	DisplayName string
	Description *string
	Icon        *string
	Schema      []domain.FieldDefinition
}

// Validate checks all fields and collects all errors. Field definitions are
// validated separately against the meta-schema.
func (i CreateModuleInput) Validate() error {
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

	if len(i.Schema) == 0 {
		errs = append(errs, domain.FieldError{Field: "schema", Message: "at least one field required"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// UpdateModuleInput holds the parameters for updating a module definition.
// The name is immutable; a nil field means "don't change".
type UpdateModuleInput struct {
	ModuleID    uuid.UUID
	DisplayName *string
	Description *string
	Icon        *string
	Schema      []domain.FieldDefinition // nil = keep current schema
}

// Validate checks all fields and collects all errors.
func (i UpdateModuleInput) Validate() error {
	var errs []domain.FieldError

	if i.ModuleID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "module_id", Message: "required"})
	}
	if i.DisplayName != nil {
		if strings.TrimSpace(*i.DisplayName) == "" {
			errs = append(errs, domain.FieldError{Field: "display_name", Message: "required"})
		}
		if len(*i.DisplayName) > 100 {
			errs = append(errs, domain.FieldError{Field: "display_name", Message: "max 100 characters"})
		}
	}
	if i.DisplayName == nil && i.Description == nil && i.Icon == nil && i.Schema == nil {
		errs = append(errs, domain.FieldError{Field: "input", Message: "at least one field must be provided"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}
