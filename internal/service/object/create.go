package object

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/schema"
)

// CreateObject creates an instance of an object type. Every required binding
// must have a data record in the input, every supplied module must be bound
// to the type, and each record is defaulted and validated against its module
// schema before anything is written. The object row and all attachments go
// in one transaction.
func (s *Service) CreateObject(ctx context.Context, input CreateObjectInput) (View, error) {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return View{}, err
	}

	if err := input.Validate(); err != nil {
		return View{}, err
	}

	typ, err := s.types.GetByID(ctx, input.ObjectTypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return View{}, domain.NewValidationError("object_type_id", "object type does not exist")
		}
		return View{}, fmt.Errorf("get object type: %w", err)
	}
	if !typ.IsActive {
		return View{}, domain.NewValidationError("object_type_id", "object type is inactive")
	}

	// Resolve every bound module once so required-presence and membership
	// checks can run against names rather than ids.
	defsByName := make(map[string]*domain.ModuleDefinition, len(typ.Modules))
	for _, b := range typ.Modules {
		def, err := s.modules.GetByID(ctx, b.ModuleID)
		if err != nil {
			return View{}, fmt.Errorf("resolve bound module %s: %w", b.ModuleID, err)
		}
		defsByName[def.Name] = def
		if b.Required {
			if _, ok := input.Modules[def.Name]; !ok {
				return View{}, domain.NewValidationError("modules", fmt.Sprintf("required module %q missing", def.Name))
			}
		}
	}

	names := make([]string, 0, len(input.Modules))
	for name := range input.Modules {
		if _, ok := defsByName[name]; !ok {
			return View{}, domain.NewValidationError("modules", fmt.Sprintf("module %q is not bound to this object type", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	validated := make(map[string]domain.Record, len(names))
	for _, name := range names {
		data, err := s.validateModuleData(defsByName[name], input.Modules[name])
		if err != nil {
			return View{}, err
		}
		validated[name] = data
	}

	var created *domain.ObjectInstance
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		obj, err := s.objects.Create(ctx, &domain.ObjectInstance{
			ObjectTypeID: input.ObjectTypeID,
			OwnerID:      input.OwnerID,
			CreatedBy:    actor.UserID,
		})
		if err != nil {
			return fmt.Errorf("create object: %w", err)
		}

		for _, name := range names {
			def := defsByName[name]
			att, err := s.objects.UpsertModule(ctx, obj.ID, def.ID, validated[name])
			if err != nil {
				return fmt.Errorf("write module %q: %w", name, err)
			}
			att.ModuleName = def.Name
			obj.Modules = append(obj.Modules, *att)
		}

		created = obj
		return nil
	})
	if err != nil {
		return View{}, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "object",
		EntityID:   &created.ID,
		NewValues:  map[string]any{"object_type_id": created.ObjectTypeID.String(), "modules": names},
	})

	s.log.InfoContext(ctx, "object created",
		slog.String("object_id", created.ID.String()),
		slog.String("type", typ.Name),
		slog.Int("modules", len(created.Modules)),
	)

	return s.view(created), nil
}

// validateModuleData applies schema defaults and validates the record.
// The returned record is a defaulted copy; the input is not mutated.
func (s *Service) validateModuleData(def *domain.ModuleDefinition, data domain.Record) (domain.Record, error) {
	compiled, err := s.schemas.ForModule(def)
	if err != nil {
		return nil, fmt.Errorf("compile schema for module %q: %w", def.Name, err)
	}

	defaulted := schema.ApplyDefaults(def.Schema, data)
	if errs := compiled.Validate(defaulted); len(errs) > 0 {
		return nil, domain.NewValidationErrors(prefixFieldErrors(def.Name, errs))
	}

	return defaulted, nil
}

func prefixFieldErrors(moduleName string, errs []domain.FieldError) []domain.FieldError {
	out := make([]domain.FieldError, len(errs))
	for i, e := range errs {
		out[i] = domain.FieldError{Field: moduleName + "." + e.Field, Message: e.Message}
	}
	return out
}
