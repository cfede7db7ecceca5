package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/substratehq/substrate/internal/domain"
)

// Registry holds the known processors. It is populated during startup and
// read-only afterwards; the lock exists for the registration phase.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Processor
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[string]Processor)}
}

// Register adds a processor. Names must be unique.
func (r *Registry) Register(p Processor) error {
	name := p.Spec().Name
	if name == "" {
		return fmt.Errorf("%w: processor name is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.procs[name]; exists {
		return fmt.Errorf("processor %q: %w", name, domain.ErrAlreadyExists)
	}

	r.procs[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get returns a processor by name.
func (r *Registry) Get(name string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.procs[name]
	return p, ok
}

// All returns every registered processor in registration order.
func (r *Registry) All() []Processor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Processor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.procs[name])
	}
	return out
}

// EligibleFor returns the processors whose required modules are all present
// in the attached set, in registration order.
func (r *Registry) EligibleFor(attached map[string]domain.Record) []Processor {
	var out []Processor
	for _, p := range r.All() {
		if Eligible(p.Spec(), attached) {
			out = append(out, p)
		}
	}
	return out
}

// Run executes every eligible processor concurrently and joins the results.
// Each processor writes to its own buffered channel, so a processor that
// outlives ctx neither blocks its siblings nor leaks a blocked goroutine;
// it is reported as a failed Result with the context error.
func (r *Registry) Run(ctx context.Context, pc *Context) []Result {
	eligible := r.EligibleFor(pc.Modules)

	chans := make([]chan Result, len(eligible))
	for i, p := range eligible {
		ch := make(chan Result, 1)
		chans[i] = ch
		go func(p Processor) {
			ch <- Execute(ctx, p, pc)
		}(p)
	}

	results := make([]Result, 0, len(eligible))
	for i, ch := range chans {
		select {
		case res := <-ch:
			results = append(results, res)
		case <-ctx.Done():
			// prefer a result that raced the deadline over a timeout report
			select {
			case res := <-ch:
				results = append(results, res)
			default:
				results = append(results, Result{
					Processor: eligible[i].Spec().Name,
					Error:     fmt.Sprintf("processor did not complete: %v", ctx.Err()),
				})
			}
		}
	}

	return results
}
