package schema

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/substratehq/substrate/internal/domain"
)

// Cache holds compiled validators keyed by (module id, schema version).
// A module's UpdatedAt timestamp acts as the schema version: updating a
// definition invalidates the old entry naturally. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Compiled
	group   singleflight.Group
}

// NewCache creates an empty validator cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Compiled)}
}

// ForModule returns the compiled validator for the module's current
// schema, compiling and caching it on first use. Concurrent first uses of
// the same version share one compilation via singleflight.
func (c *Cache) ForModule(mod *domain.ModuleDefinition) (*Compiled, error) {
	key := fmt.Sprintf("%s@%d", mod.ID, mod.UpdatedAt.UnixNano())

	c.mu.RLock()
	compiled, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		compiled, err := Compile(mod.Schema)
		if err != nil {
			return nil, fmt.Errorf("compile schema for module %q: %w", mod.Name, err)
		}

		c.mu.Lock()
		c.entries[key] = compiled
		c.mu.Unlock()

		return compiled, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Compiled), nil
}
