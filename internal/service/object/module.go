package object

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// UpdateModuleData replaces one attachment's data record after defaulting
// and validating it. Writing a module the object does not carry attaches it.
// A stage status change additionally appends a best-effort timeline event.
func (s *Service) UpdateModuleData(ctx context.Context, input UpdateModuleDataInput) (*domain.AttachedModule, error) {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	obj, err := s.objects.GetByID(ctx, input.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	def, err := s.modules.GetByName(ctx, input.ModuleName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("module_name", fmt.Sprintf("module %q does not exist", input.ModuleName))
		}
		return nil, fmt.Errorf("resolve module: %w", err)
	}

	if _, canWrite := s.oracle.ModulePermission(ctx, def.ID, obj.ObjectTypeID); !canWrite {
		return nil, domain.ErrForbidden
	}

	data, err := s.validateModuleData(def, input.Data)
	if err != nil {
		return nil, err
	}

	var oldData domain.Record
	if existing, ok := obj.Module(def.Name); ok {
		oldData = existing.Data
	}

	var att *domain.AttachedModule
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		att, err = s.objects.UpsertModule(ctx, obj.ID, def.ID, data)
		if err != nil {
			return fmt.Errorf("upsert module data: %w", err)
		}
		att.ModuleName = def.Name

		if err := s.objects.Touch(ctx, obj.ID); err != nil {
			return fmt.Errorf("touch object: %w", err)
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
		EntityType: "object_module",
		EntityID:   &obj.ID,
		OldValues:  diffRecord(oldData, data),
		NewValues:  diffRecord(data, oldData),
	})

	s.maybeEmitStatusChange(ctx, actor, obj, def.Name, oldData, data)

	s.log.InfoContext(ctx, "module data updated",
		slog.String("object_id", obj.ID.String()),
		slog.String("module", def.Name),
	)

	return att, nil
}

// AttachModule attaches a module the object does not already carry. Unlike
// UpdateModuleData the attachment may be ad-hoc: the module does not have to
// be bound to the object's type.
func (s *Service) AttachModule(ctx context.Context, input AttachModuleInput) (*domain.AttachedModule, error) {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	obj, err := s.objects.GetByID(ctx, input.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	def, err := s.modules.GetByName(ctx, input.ModuleName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("module_name", fmt.Sprintf("module %q does not exist", input.ModuleName))
		}
		return nil, fmt.Errorf("resolve module: %w", err)
	}

	if obj.HasModule(def.Name) {
		return nil, fmt.Errorf("module %q already attached: %w", def.Name, domain.ErrAlreadyExists)
	}

	if _, canWrite := s.oracle.ModulePermission(ctx, def.ID, obj.ObjectTypeID); !canWrite {
		return nil, domain.ErrForbidden
	}

	data := input.Data
	if data == nil {
		data = domain.Record{}
	}
	data, err = s.validateModuleData(def, data)
	if err != nil {
		return nil, err
	}

	var att *domain.AttachedModule
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		att, err = s.objects.UpsertModule(ctx, obj.ID, def.ID, data)
		if err != nil {
			return fmt.Errorf("attach module: %w", err)
		}
		att.ModuleName = def.Name

		if err := s.objects.Touch(ctx, obj.ID); err != nil {
			return fmt.Errorf("touch object: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "object_module",
		EntityID:   &obj.ID,
		NewValues:  map[string]any{"module": def.Name},
	})

	s.appendEvent(ctx, &domain.TimelineEvent{
		ObjectID:  obj.ID,
		EventType: domain.EventModuleAttached,
		Title:     fmt.Sprintf("Module %q attached", def.Name),
		CreatedBy: &actor.UserID,
	})

	return att, nil
}

// DetachModule removes an attachment and its data. Detaching a module the
// object's type declares as required is rejected.
func (s *Service) DetachModule(ctx context.Context, objectID uuid.UUID, moduleName string) error {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return err
	}
	if objectID == uuid.Nil {
		return domain.NewValidationError("object_id", "required")
	}
	if moduleName == "" {
		return domain.NewValidationError("module_name", "required")
	}

	obj, err := s.objects.GetByID(ctx, objectID)
	if err != nil {
		return fmt.Errorf("get object: %w", err)
	}

	def, err := s.modules.GetByName(ctx, moduleName)
	if err != nil {
		return fmt.Errorf("resolve module: %w", err)
	}

	typ, err := s.types.GetByID(ctx, obj.ObjectTypeID)
	if err != nil {
		return fmt.Errorf("get object type: %w", err)
	}
	if binding, ok := typ.BindingFor(def.ID); ok && binding.Required {
		return domain.NewValidationError("module_name", fmt.Sprintf("module %q is required by the object type", def.Name))
	}

	if _, canWrite := s.oracle.ModulePermission(ctx, def.ID, obj.ObjectTypeID); !canWrite {
		return domain.ErrForbidden
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.objects.DetachModule(ctx, objectID, def.ID); err != nil {
			return fmt.Errorf("detach module: %w", err)
		}
		if err := s.objects.Touch(ctx, objectID); err != nil {
			return fmt.Errorf("touch object: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var oldData domain.Record
	if existing, ok := obj.Module(def.Name); ok {
		oldData = existing.Data
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionDelete,
		Category:   auditCategory,
		EntityType: "object_module",
		EntityID:   &objectID,
		OldValues:  map[string]any{"module": def.Name, "data": oldData},
	})

	s.appendEvent(ctx, &domain.TimelineEvent{
		ObjectID:  objectID,
		EventType: domain.EventModuleDetached,
		Title:     fmt.Sprintf("Module %q detached", def.Name),
		CreatedBy: &actor.UserID,
	})

	return nil
}

// maybeEmitStatusChange appends a status_change event when a stage write
// moved the status field. Timeline failures never fail the write.
func (s *Service) maybeEmitStatusChange(ctx context.Context, actor domain.Actor, obj *domain.ObjectInstance, moduleName string, oldData, newData domain.Record) {
	if moduleName != domain.ModuleStage {
		return
	}

	oldStatus, _ := oldData["status"].(string)
	newStatus, _ := newData["status"].(string)
	if oldStatus == newStatus {
		return
	}

	s.appendEvent(ctx, &domain.TimelineEvent{
		ObjectID:  obj.ID,
		EventType: domain.EventStatusChange,
		Title:     fmt.Sprintf("Status changed to %q", newStatus),
		Metadata:  map[string]any{"from": oldStatus, "to": newStatus},
		CreatedBy: &actor.UserID,
	})
}

// appendEvent writes a timeline event, logging instead of failing.
func (s *Service) appendEvent(ctx context.Context, ev *domain.TimelineEvent) {
	if _, err := s.timeline.Append(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "timeline append failed",
			slog.String("object_id", ev.ObjectID.String()),
			slog.String("event_type", ev.EventType.String()),
			slog.Any("error", err),
		)
	}
}

// diffRecord returns the entries of a that are absent or different in b.
func diffRecord(a, b domain.Record) map[string]any {
	diff := make(map[string]any)
	for k, v := range a {
		if other, ok := b[k]; !ok || !reflect.DeepEqual(v, other) {
			diff[k] = v
		}
	}
	if len(diff) == 0 {
		return nil
	}
	return diff
}
