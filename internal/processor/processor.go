// Package processor implements module-driven business logic. A processor
// declares which modules it needs and operates purely on attached module
// data; it never inspects an object's declared type. Eligibility is a set
// check: an object qualifies when the processor's required module names are
// a subset of the object's attached module names.
package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/substratehq/substrate/internal/domain"
)

// Spec describes a processor: its name and the modules it operates on.
type Spec struct {
	Name            string
	Description     string
	RequiredModules []string
	OptionalModules []string
}

// Context is the input a processor runs against.
type Context struct {
	Actor  domain.Actor
	Object *domain.ObjectInstance

	// Modules maps module name to its data record for every attached module.
	Modules map[string]domain.Record
}

// NewContext builds a processor context from an object instance.
func NewContext(actor domain.Actor, obj *domain.ObjectInstance) *Context {
	modules := make(map[string]domain.Record, len(obj.Modules))
	for _, m := range obj.Modules {
		modules[m.ModuleName] = m.Data
	}

	return &Context{
		Actor:   actor,
		Object:  obj,
		Modules: modules,
	}
}

// Module returns the data record for a module name, if attached.
func (c *Context) Module(name string) (domain.Record, bool) {
	rec, ok := c.Modules[name]
	return rec, ok
}

// Processor is a named unit of module-driven logic.
type Processor interface {
	Spec() Spec
	Process(ctx context.Context, pc *Context) (map[string]any, error)
}

// Result is the outcome of one processor execution. A failed or timed-out
// processor yields Success=false with Error set; it never fails the run.
type Result struct {
	Processor string         `json:"processor"`
	Success   bool           `json:"success"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Eligible reports whether every required module is present in the given
// attached module names.
func Eligible(spec Spec, attached map[string]domain.Record) bool {
	return len(missingModules(spec, attached)) == 0
}

func missingModules(spec Spec, attached map[string]domain.Record) []string {
	var missing []string
	for _, name := range spec.RequiredModules {
		if _, ok := attached[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Execute runs one processor against the context. Eligibility is re-checked
// here so direct execution cannot bypass it. Panics and errors are converted
// into failed Results; Execute itself never panics.
func Execute(ctx context.Context, p Processor, pc *Context) (res Result) {
	spec := p.Spec()
	res = Result{Processor: spec.Name}

	if missing := missingModules(spec, pc.Modules); len(missing) > 0 {
		res.Error = fmt.Sprintf("object %s is missing required modules: %s",
			pc.Object.ID, strings.Join(missing, ", "))
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Processor: spec.Name,
				Error:     fmt.Sprintf("processor panicked: %v", r),
			}
		}
	}()

	output, err := p.Process(ctx, pc)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.Output = output
	return res
}
