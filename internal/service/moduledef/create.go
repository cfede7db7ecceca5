package moduledef

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/schema"
)

// CreateModule defines a new reusable module. The field schema is validated
// against the meta-schema here so data validation never sees a malformed one.
func (s *Service) CreateModule(ctx context.Context, input CreateModuleInput) (*domain.ModuleDefinition, error) {
	actor, err := requireActor(ctx, domain.PermModulesManage)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := schema.ValidateMeta(input.Schema); err != nil {
		return nil, err
	}

	mod, err := s.modules.Create(ctx, &domain.ModuleDefinition{
		Name:        strings.TrimSpace(input.Name),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: input.Description,
		Icon:        input.Icon,
		Schema:      input.Schema,
	})
	if err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "module",
		EntityID:   &mod.ID,
		NewValues:  map[string]any{"name": mod.Name, "fields": len(mod.Schema)},
	})

	s.log.InfoContext(ctx, "module created",
		slog.String("module_id", mod.ID.String()),
		slog.String("name", mod.Name),
		slog.Int("fields", len(mod.Schema)),
	)

	return mod, nil
}
