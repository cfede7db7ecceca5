package objecttype

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// DeleteType removes an object type and its bindings. The repository rejects
// the delete with domain.ErrConflict while instances of the type exist.
func (s *Service) DeleteType(ctx context.Context, id uuid.UUID) error {
	actor, err := requireActor(ctx, domain.PermTypesManage)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return domain.NewValidationError("type_id", "required")
	}

	def, err := s.types.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get object type: %w", err)
	}

	if err := s.types.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete object type: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionDelete,
		Category:   auditCategory,
		EntityType: "object_type",
		EntityID:   &id,
		OldValues:  map[string]any{"name": def.Name, "modules": len(def.Modules)},
	})

	s.log.InfoContext(ctx, "object type deleted",
		slog.String("type_id", id.String()),
		slog.String("name", def.Name),
	)

	return nil
}
