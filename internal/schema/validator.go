// Package schema compiles module field definitions into reusable data
// validators. Compilation validates the schema itself; validating a data
// record never panics and reports all field errors at once.
package schema

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/substratehq/substrate/internal/domain"
)

// Compiled is a validation routine built from one module's field schema.
// Safe for concurrent use.
type Compiled struct {
	fields  []domain.FieldDefinition
	options map[string]map[string]bool // field key -> allowed select values
}

// Compile builds a Compiled validator from a field list. The schema itself
// is checked first; an invalid schema is a definition-time error, not a
// data-validation failure.
func Compile(fields []domain.FieldDefinition) (*Compiled, error) {
	if err := ValidateMeta(fields); err != nil {
		return nil, err
	}

	c := &Compiled{
		fields:  fields,
		options: make(map[string]map[string]bool),
	}
	for _, f := range fields {
		if f.Type == domain.FieldTypeSelect || f.Type == domain.FieldTypeMultiselect {
			allowed := make(map[string]bool, len(f.Options))
			for _, opt := range f.Options {
				allowed[opt.Value] = true
			}
			c.options[f.Key] = allowed
		}
	}
	return c, nil
}

// Fields returns the compiled field list in schema order.
func (c *Compiled) Fields() []domain.FieldDefinition {
	return c.fields
}

// Validate checks a data record against the schema and returns all field
// errors found. Keys the schema does not declare pass through untouched;
// the schema is additive, not closed, so legacy data survives a field
// being removed.
func (c *Compiled) Validate(data domain.Record) []domain.FieldError {
	var errs []domain.FieldError

	for _, f := range c.fields {
		value, present := data[f.Key]

		if !present || isEmpty(value) {
			if f.Required {
				errs = append(errs, domain.FieldError{Field: f.Key, Message: "required"})
			}
			continue
		}

		if msg := c.checkValue(f, value); msg != "" {
			errs = append(errs, domain.FieldError{Field: f.Key, Message: msg})
		}
	}

	return errs
}

// checkValue applies the type constraint for one field. Returns an empty
// string when the value is acceptable.
func (c *Compiled) checkValue(f domain.FieldDefinition, value any) string {
	switch f.Type {
	case domain.FieldTypeText, domain.FieldTypeTextarea, domain.FieldTypePhone,
		domain.FieldTypeDate, domain.FieldTypeDatetime:
		// Date/datetime stay raw strings: format is the caller's concern.
		if _, ok := value.(string); !ok {
			return "must be a string"
		}

	case domain.FieldTypeEmail:
		s, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return "invalid email format"
		}

	case domain.FieldTypeURL:
		s, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "invalid url format"
		}

	case domain.FieldTypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return "must be a number"
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Sprintf("must be >= %v", *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Sprintf("must be <= %v", *f.Max)
		}

	case domain.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}

	case domain.FieldTypeSelect:
		s, ok := value.(string)
		if !ok {
			return "must be a string"
		}
		if !c.options[f.Key][s] {
			return fmt.Sprintf("must be one of: %s", strings.Join(optionValues(f), ", "))
		}

	case domain.FieldTypeMultiselect:
		items, ok := toStringSlice(value)
		if !ok {
			return "must be a list of strings"
		}
		for _, item := range items {
			if !c.options[f.Key][item] {
				return fmt.Sprintf("%q is not one of: %s", item, strings.Join(optionValues(f), ", "))
			}
		}
	}

	return ""
}

// isEmpty reports whether a present value counts as absent for required
// checks: nil, empty string, or empty list.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

// toFloat widens the numeric representations JSON decoding and Go callers
// produce into float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toStringSlice(v any) ([]string, bool) {
	switch items := v.(type) {
	case []string:
		return items, true
	case []any:
		out := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func optionValues(f domain.FieldDefinition) []string {
	values := make([]string, len(f.Options))
	for i, opt := range f.Options {
		values[i] = opt.Value
	}
	return values
}
