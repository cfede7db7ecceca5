package objecttype

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/substratehq/substrate/internal/domain"
)

// UpdateType applies a partial update to an object type. A non-nil Modules
// slice replaces the whole binding set; objects created under the old set
// keep their data unchanged. Removing a required binding does not strip the
// module from existing objects.
func (s *Service) UpdateType(ctx context.Context, input UpdateTypeInput) (*domain.ObjectTypeDefinition, error) {
	actor, err := requireActor(ctx, domain.PermTypesManage)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	current, err := s.types.GetByID(ctx, input.TypeID)
	if err != nil {
		return nil, fmt.Errorf("get object type: %w", err)
	}

	var bindings []domain.ModuleBinding
	if input.Modules != nil {
		bindings, err = s.resolveBindings(ctx, input.Modules)
		if err != nil {
			return nil, err
		}
	}

	next := *current
	if input.DisplayName != nil {
		next.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Description != nil {
		next.Description = input.Description
	}
	if input.Icon != nil {
		next.Icon = input.Icon
	}
	if input.Color != nil {
		next.Color = input.Color
	}
	if input.IsActive != nil {
		next.IsActive = *input.IsActive
	}

	var updated *domain.ObjectTypeDefinition
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		updated, err = s.types.Update(ctx, input.TypeID, &next)
		if err != nil {
			return fmt.Errorf("update object type: %w", err)
		}

		if input.Modules != nil {
			if err := s.types.ReplaceBindings(ctx, input.TypeID, bindings); err != nil {
				return fmt.Errorf("replace bindings: %w", err)
			}
			updated.Modules = bindings
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionUpdate,
		Category:   auditCategory,
		EntityType: "object_type",
		EntityID:   &updated.ID,
		OldValues:  map[string]any{"display_name": current.DisplayName, "modules": len(current.Modules)},
		NewValues:  map[string]any{"display_name": updated.DisplayName, "modules": len(updated.Modules)},
	})

	s.log.InfoContext(ctx, "object type updated",
		slog.String("type_id", updated.ID.String()),
		slog.String("name", updated.Name),
	)

	return updated, nil
}
