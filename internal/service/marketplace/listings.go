package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// ListListings returns every object that carries a public_project module
// with at least one boolean field set true. Which boolean fields exist is
// read from the module's schema, so a reworked schema changes the listing
// criteria without code changes.
func (s *Service) ListListings(ctx context.Context) ([]Listing, error) {
	if _, err := requireActor(ctx, domain.PermObjectsRead); err != nil {
		return nil, err
	}

	def, err := s.modules.GetByName(ctx, domain.ModulePublicProject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []Listing{}, nil
		}
		return nil, fmt.Errorf("resolve public_project module: %w", err)
	}

	var boolKeys []string
	for _, f := range def.Schema {
		if f.Type == domain.FieldTypeBoolean {
			boolKeys = append(boolKeys, f.Key)
		}
	}
	if len(boolKeys) == 0 {
		return []Listing{}, nil
	}

	// One filtered listing per boolean flag, unioned by object id. Flags are
	// few so the extra round trips stay cheap.
	byID := make(map[uuid.UUID]*domain.ObjectInstance)
	for _, key := range boolKeys {
		objs, _, err := s.objects.List(ctx, domain.ObjectFilter{
			Filters: []domain.FieldFilter{{
				ModuleName: domain.ModulePublicProject,
				FieldKey:   key,
				Op:         domain.OpEq,
				Value:      true,
			}},
			Limit: domain.MaxPageLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("list public projects by %q: %w", key, err)
		}
		for _, obj := range objs {
			byID[obj.ID] = obj
		}
	}

	listings := make([]Listing, 0, len(byID))
	for _, obj := range byID {
		listings = append(listings, Listing{Object: obj, DisplayName: obj.DisplayName()})
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Object.CreatedAt.After(listings[j].Object.CreatedAt)
	})

	return listings, nil
}
