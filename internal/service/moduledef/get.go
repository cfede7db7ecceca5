package moduledef

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

// GetModule returns a module definition by id.
func (s *Service) GetModule(ctx context.Context, id uuid.UUID) (*domain.ModuleDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}
	if id == uuid.Nil {
		return nil, domain.NewValidationError("module_id", "required")
	}

	mod, err := s.modules.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
	}

	return mod, nil
}

// GetModuleByName returns a module definition by its unique slug.
func (s *Service) GetModuleByName(ctx context.Context, name string) (*domain.ModuleDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}
	if name == "" {
		return nil, domain.NewValidationError("name", "required")
	}

	mod, err := s.modules.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get module by name: %w", err)
	}

	return mod, nil
}

// ListModules returns every defined module ordered by name.
func (s *Service) ListModules(ctx context.Context) ([]*domain.ModuleDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}

	mods, err := s.modules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	return mods, nil
}
