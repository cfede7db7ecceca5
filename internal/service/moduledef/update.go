package moduledef

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/schema"
)

// UpdateModule applies a partial update to a module definition. A replaced
// schema takes effect for future writes only; existing object data is never
// migrated.
func (s *Service) UpdateModule(ctx context.Context, input UpdateModuleInput) (*domain.ModuleDefinition, error) {
	actor, err := requireActor(ctx, domain.PermModulesManage)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	current, err := s.modules.GetByID(ctx, input.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("get module: %w", err)
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
	if input.Schema != nil {
		if err := schema.ValidateMeta(input.Schema); err != nil {
			return nil, err
		}
		next.Schema = input.Schema
	}

	updated, err := s.modules.Update(ctx, input.ModuleID, &next)
	if err != nil {
		return nil, fmt.Errorf("update module: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionUpdate,
		Category:   auditCategory,
		EntityType: "module",
		EntityID:   &updated.ID,
		OldValues:  map[string]any{"display_name": current.DisplayName, "fields": len(current.Schema)},
		NewValues:  map[string]any{"display_name": updated.DisplayName, "fields": len(updated.Schema)},
	})

	s.log.InfoContext(ctx, "module updated",
		slog.String("module_id", updated.ID.String()),
		slog.String("name", updated.Name),
	)

	return updated, nil
}
