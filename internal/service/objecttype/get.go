package objecttype

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

// GetType returns an object type with its bindings.
func (s *Service) GetType(ctx context.Context, id uuid.UUID) (*domain.ObjectTypeDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}
	if id == uuid.Nil {
		return nil, domain.NewValidationError("type_id", "required")
	}

	def, err := s.types.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get object type: %w", err)
	}

	return def, nil
}

// GetTypeByName returns an object type by its unique slug.
func (s *Service) GetTypeByName(ctx context.Context, name string) (*domain.ObjectTypeDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}
	if name == "" {
		return nil, domain.NewValidationError("name", "required")
	}

	def, err := s.types.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get object type by name: %w", err)
	}

	return def, nil
}

// ListTypes returns every object type ordered by name.
func (s *Service) ListTypes(ctx context.Context) ([]*domain.ObjectTypeDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}

	defs, err := s.types.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list object types: %w", err)
	}

	return defs, nil
}
