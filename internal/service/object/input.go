package object

import (
	"strings"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// CreateObjectInput holds the parameters for creating an object instance.
// Modules maps module name to its initial data record; every required
// binding of the type must have an entry.
type CreateObjectInput struct {
	ObjectTypeID uuid.UUID
	OwnerID      *uuid.UUID
	Modules      map[string]domain.Record
}

// Validate checks all fields and collects all errors.
func (i CreateObjectInput) Validate() error {
	var errs []domain.FieldError

	if i.ObjectTypeID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "object_type_id", Message: "required"})
	}
	for name := range i.Modules {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, domain.FieldError{Field: "modules", Message: "module name must not be empty"})
		}
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// UpdateModuleDataInput holds the parameters for writing one module's data
// on an object. The write replaces the attachment's record wholesale.
type UpdateModuleDataInput struct {
	ObjectID   uuid.UUID
	ModuleName string
	Data       domain.Record
}

// Validate checks all fields and collects all errors.
func (i UpdateModuleDataInput) Validate() error {
	var errs []domain.FieldError

	if i.ObjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "object_id", Message: "required"})
	}
	if strings.TrimSpace(i.ModuleName) == "" {
		errs = append(errs, domain.FieldError{Field: "module_name", Message: "required"})
	}
	if i.Data == nil {
		errs = append(errs, domain.FieldError{Field: "data", Message: "required"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// AttachModuleInput holds the parameters for attaching a module to an
// existing object. Nil data attaches with defaults only.
type AttachModuleInput struct {
	ObjectID   uuid.UUID
	ModuleName string
	Data       domain.Record
}

// Validate checks all fields and collects all errors.
func (i AttachModuleInput) Validate() error {
	var errs []domain.FieldError

	if i.ObjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "object_id", Message: "required"})
	}
	if strings.TrimSpace(i.ModuleName) == "" {
		errs = append(errs, domain.FieldError{Field: "module_name", Message: "required"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}
