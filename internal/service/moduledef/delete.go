package moduledef

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// DeleteModule removes a module definition. Deletion is rejected while any
// object still carries the module's data or any object type binds it.
func (s *Service) DeleteModule(ctx context.Context, id uuid.UUID) error {
	actor, err := requireActor(ctx, domain.PermModulesManage)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return domain.NewValidationError("module_id", "required")
	}

	mod, err := s.modules.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get module: %w", err)
	}

	usage, err := s.modules.UsageCount(ctx, id)
	if err != nil {
		return fmt.Errorf("count module usage: %w", err)
	}
	if usage > 0 {
		return domain.NewValidationError("module", fmt.Sprintf("in use by %d objects", usage))
	}

	bindings, err := s.modules.BindingCount(ctx, id)
	if err != nil {
		return fmt.Errorf("count module bindings: %w", err)
	}
	if bindings > 0 {
		return domain.NewValidationError("module", fmt.Sprintf("bound by %d object types", bindings))
	}

	if err := s.modules.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete module: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionDelete,
		Category:   auditCategory,
		EntityType: "module",
		EntityID:   &id,
		OldValues:  map[string]any{"name": mod.Name, "fields": len(mod.Schema)},
	})

	s.log.InfoContext(ctx, "module deleted",
		slog.String("module_id", id.String()),
		slog.String("name", mod.Name),
	)

	return nil
}
