package schema

import "github.com/substratehq/substrate/internal/domain"

// ApplyDefaults returns a copy of data with declared field defaults filled
// in for keys absent from the input. A key explicitly present keeps its
// value, even when empty or nil; defaults never overwrite.
func ApplyDefaults(fields []domain.FieldDefinition, data domain.Record) domain.Record {
	out := make(domain.Record, len(data)+len(fields))
	for k, v := range data {
		out[k] = v
	}

	for _, f := range fields {
		if f.Default == nil {
			continue
		}
		if _, present := out[f.Key]; !present {
			out[f.Key] = f.Default
		}
	}

	return out
}
