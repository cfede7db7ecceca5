package schema

import (
	"fmt"

	"github.com/substratehq/substrate/internal/domain"
)

// ValidateMeta checks a field schema itself: the module registry runs this
// at definition time so that data validation never has to deal with a
// malformed schema.
func ValidateMeta(fields []domain.FieldDefinition) error {
	var errs []domain.FieldError

	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		pos := fmt.Sprintf("schema[%d]", i)

		if f.Key == "" {
			errs = append(errs, domain.FieldError{Field: pos, Message: "field key is required"})
			continue
		}
		if seen[f.Key] {
			errs = append(errs, domain.FieldError{Field: f.Key, Message: "duplicate field key"})
			continue
		}
		seen[f.Key] = true

		if !f.Type.IsValid() {
			errs = append(errs, domain.FieldError{Field: f.Key, Message: fmt.Sprintf("unknown field type %q", f.Type)})
			continue
		}

		switch f.Type {
		case domain.FieldTypeSelect, domain.FieldTypeMultiselect:
			if len(f.Options) == 0 {
				errs = append(errs, domain.FieldError{Field: f.Key, Message: "options are required for select fields"})
				continue
			}
			optSeen := make(map[string]bool, len(f.Options))
			for _, opt := range f.Options {
				if opt.Value == "" {
					errs = append(errs, domain.FieldError{Field: f.Key, Message: "option value cannot be empty"})
					break
				}
				if optSeen[opt.Value] {
					errs = append(errs, domain.FieldError{Field: f.Key, Message: fmt.Sprintf("duplicate option value %q", opt.Value)})
					break
				}
				optSeen[opt.Value] = true
			}

		case domain.FieldTypeNumber:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				errs = append(errs, domain.FieldError{Field: f.Key, Message: "min cannot exceed max"})
			}

		default:
			if len(f.Options) > 0 {
				errs = append(errs, domain.FieldError{Field: f.Key, Message: "options are only allowed on select fields"})
			}
			if f.Min != nil || f.Max != nil {
				errs = append(errs, domain.FieldError{Field: f.Key, Message: "min/max are only allowed on number fields"})
			}
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
