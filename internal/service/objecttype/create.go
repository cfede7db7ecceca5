package objecttype

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/substratehq/substrate/internal/domain"
)

// CreateType defines a new object type from a set of module bindings. Every
// referenced module must already exist in the registry. The type row and its
// bindings are written in one transaction.
func (s *Service) CreateType(ctx context.Context, input CreateTypeInput) (*domain.ObjectTypeDefinition, error) {
	actor, err := requireActor(ctx, domain.PermTypesManage)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	bindings, err := s.resolveBindings(ctx, input.Modules)
	if err != nil {
		return nil, err
	}

	var created *domain.ObjectTypeDefinition
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		def, err := s.types.Create(ctx, &domain.ObjectTypeDefinition{
			Name:        strings.TrimSpace(input.Name),
			DisplayName: strings.TrimSpace(input.DisplayName),
			Description: input.Description,
			Icon:        input.Icon,
			Color:       input.Color,
			IsActive:    true,
		})
		if err != nil {
			return fmt.Errorf("create object type: %w", err)
		}

		if err := s.types.ReplaceBindings(ctx, def.ID, bindings); err != nil {
			return fmt.Errorf("write bindings: %w", err)
		}

		def.Modules = bindings
		created = def
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "object_type",
		EntityID:   &created.ID,
		NewValues:  map[string]any{"name": created.Name, "modules": len(created.Modules)},
	})

	s.log.InfoContext(ctx, "object type created",
		slog.String("type_id", created.ID.String()),
		slog.String("name", created.Name),
		slog.Int("modules", len(created.Modules)),
	)

	return created, nil
}

// resolveBindings checks that every bound module exists and converts the
// inputs into domain bindings, preserving declared positions.
func (s *Service) resolveBindings(ctx context.Context, inputs []BindingInput) ([]domain.ModuleBinding, error) {
	bindings := make([]domain.ModuleBinding, 0, len(inputs))
	for _, b := range inputs {
		if _, err := s.modules.GetByID(ctx, b.ModuleID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("modules", fmt.Sprintf("module %s does not exist", b.ModuleID))
			}
			return nil, fmt.Errorf("check module %s: %w", b.ModuleID, err)
		}
		bindings = append(bindings, domain.ModuleBinding{
			ModuleID: b.ModuleID,
			Required: b.Required,
			Position: b.Position,
		})
	}
	return bindings, nil
}
