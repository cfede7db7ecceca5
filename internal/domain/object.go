package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a module data payload: an open key→value map validated against
// the module's field schema at write time. Keys the schema does not know
// pass through unchanged.
type Record = map[string]any

// AttachedModule is the (object, module) pairing plus its data payload.
// At most one attachment exists per pair.
type AttachedModule struct {
	ID         uuid.UUID
	ObjectID   uuid.UUID
	ModuleID   uuid.UUID
	ModuleName string
	Data       Record
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ObjectInstance is a concrete record of some object type, holding zero or
// more attached module data records.
type ObjectInstance struct {
	ID           uuid.UUID
	ObjectTypeID uuid.UUID
	OwnerID      *uuid.UUID
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Modules []AttachedModule
}

// ModuleNames returns the names of all attached modules.
func (o *ObjectInstance) ModuleNames() []string {
	names := make([]string, 0, len(o.Modules))
	for _, m := range o.Modules {
		names = append(names, m.ModuleName)
	}
	return names
}

// Module returns the attachment with the given module name, if present.
func (o *ObjectInstance) Module(name string) (AttachedModule, bool) {
	for _, m := range o.Modules {
		if m.ModuleName == name {
			return m, true
		}
	}
	return AttachedModule{}, false
}

// HasModule reports whether an attachment with the given module name exists.
func (o *ObjectInstance) HasModule(name string) bool {
	_, ok := o.Module(name)
	return ok
}

// UntitledObject is the display-name fallback when no attached module
// exposes a usable label field.
const UntitledObject = "Untitled object"

// DisplayName derives the object's human-readable label from its attached
// module data. It is computed on every read and never stored: prefer the
// identity module's name, then the organization module's company name, then
// the first module exposing a name or title field.
func (o *ObjectInstance) DisplayName() string {
	if m, ok := o.Module(ModuleIdentity); ok {
		if name := stringField(m.Data, "name"); name != "" {
			return name
		}
	}
	if m, ok := o.Module(ModuleOrganization); ok {
		if name := stringField(m.Data, "company_name"); name != "" {
			return name
		}
	}
	for _, m := range o.Modules {
		if name := stringField(m.Data, "name"); name != "" {
			return name
		}
		if title := stringField(m.Data, "title"); title != "" {
			return title
		}
	}
	return UntitledObject
}

func stringField(rec Record, key string) string {
	s, _ := rec[key].(string)
	return strings.TrimSpace(s)
}
