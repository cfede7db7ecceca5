package object

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// DeleteObject removes an object with all its attachments, relations and
// timeline entries (the storage layer cascades). The audit record carries a
// snapshot of the attached module data.
func (s *Service) DeleteObject(ctx context.Context, id uuid.UUID) error {
	actor, err := requireActor(ctx, domain.PermObjectsDelete)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return domain.NewValidationError("object_id", "required")
	}

	obj, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}

	if err := s.objects.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	snapshot := make(map[string]any, len(obj.Modules))
	for _, m := range obj.Modules {
		snapshot[m.ModuleName] = m.Data
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionDelete,
		Category:   auditCategory,
		EntityType: "object",
		EntityID:   &id,
		OldValues: map[string]any{
			"object_type_id": obj.ObjectTypeID.String(),
			"modules":        snapshot,
		},
	})

	s.log.InfoContext(ctx, "object deleted",
		slog.String("object_id", id.String()),
		slog.Int("modules", len(obj.Modules)),
	)

	return nil
}
