package relation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// CreateRelationInput holds the parameters for linking two objects.
type CreateRelationInput struct {
	FromObjectID uuid.UUID
	ToObjectID   uuid.UUID
	RelationType string
	Metadata     map[string]any
}

// Validate checks all fields and collects all errors.
func (i CreateRelationInput) Validate() error {
	var errs []domain.FieldError

	if i.FromObjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "from_object_id", Message: "required"})
	}
	if i.ToObjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "to_object_id", Message: "required"})
	}
	if i.FromObjectID != uuid.Nil && i.FromObjectID == i.ToObjectID {
		errs = append(errs, domain.FieldError{Field: "to_object_id", Message: "cannot relate an object to itself"})
	}
	if strings.TrimSpace(i.RelationType) == "" {
		errs = append(errs, domain.FieldError{Field: "relation_type", Message: "required"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// CreateRelation links two existing objects with a typed edge. Both
// endpoints must exist; the relation type is not checked against schema
// relation declarations.
func (s *Service) CreateRelation(ctx context.Context, input CreateRelationInput) (*domain.InstanceRelation, error) {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	for _, objID := range []uuid.UUID{input.FromObjectID, input.ToObjectID} {
		if _, err := s.objects.GetByID(ctx, objID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("object", fmt.Sprintf("object %s does not exist", objID))
			}
			return nil, fmt.Errorf("check object %s: %w", objID, err)
		}
	}

	rel, err := s.relations.Create(ctx, &domain.InstanceRelation{
		FromObjectID: input.FromObjectID,
		ToObjectID:   input.ToObjectID,
		RelationType: strings.TrimSpace(input.RelationType),
		Metadata:     input.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create relation: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "relation",
		EntityID:   &rel.ID,
		NewValues: map[string]any{
			"from_object_id": rel.FromObjectID.String(),
			"to_object_id":   rel.ToObjectID.String(),
			"relation_type":  rel.RelationType,
		},
	})

	for _, objID := range []uuid.UUID{rel.FromObjectID, rel.ToObjectID} {
		s.appendEvent(ctx, &domain.TimelineEvent{
			ObjectID:  objID,
			EventType: domain.EventRelationAdded,
			Title:     fmt.Sprintf("Relation %q added", rel.RelationType),
			Metadata:  map[string]any{"relation_id": rel.ID.String()},
			CreatedBy: &actor.UserID,
		})
	}

	s.log.InfoContext(ctx, "relation created",
		slog.String("relation_id", rel.ID.String()),
		slog.String("relation_type", rel.RelationType),
	)

	return rel, nil
}

// ListForObject returns every edge touching the object, annotated with the
// counterpart's display name, type name and direction.
func (s *Service) ListForObject(ctx context.Context, objectID uuid.UUID) ([]domain.RelatedObject, error) {
	if _, err := requireActor(ctx, domain.PermObjectsRead); err != nil {
		return nil, err
	}
	if objectID == uuid.Nil {
		return nil, domain.NewValidationError("object_id", "required")
	}

	if _, err := s.objects.GetByID(ctx, objectID); err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}

	rels, err := s.relations.ListForObject(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}

	counterpartIDs := make([]uuid.UUID, 0, len(rels))
	seen := make(map[uuid.UUID]bool, len(rels))
	for _, rel := range rels {
		id := counterpartOf(rel, objectID)
		if !seen[id] {
			seen[id] = true
			counterpartIDs = append(counterpartIDs, id)
		}
	}

	counterparts, err := s.loadCounterparts(ctx, counterpartIDs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RelatedObject, 0, len(rels))
	for _, rel := range rels {
		direction := domain.DirectionFrom
		if rel.ToObjectID == objectID {
			direction = domain.DirectionTo
		}

		related := domain.RelatedObject{
			Relation:  rel,
			Direction: direction,
			ObjectID:  counterpartOf(rel, objectID),
		}
		if c, ok := counterparts[related.ObjectID]; ok {
			related.DisplayName = c.displayName
			related.TypeName = c.typeName
		}
		out = append(out, related)
	}

	return out, nil
}

// DeleteRelation removes an edge. The endpoint objects are untouched.
func (s *Service) DeleteRelation(ctx context.Context, id uuid.UUID) error {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return domain.NewValidationError("relation_id", "required")
	}

	rel, err := s.relations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get relation: %w", err)
	}

	if err := s.relations.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionDelete,
		Category:   auditCategory,
		EntityType: "relation",
		EntityID:   &id,
		OldValues: map[string]any{
			"from_object_id": rel.FromObjectID.String(),
			"to_object_id":   rel.ToObjectID.String(),
			"relation_type":  rel.RelationType,
		},
	})

	for _, objID := range []uuid.UUID{rel.FromObjectID, rel.ToObjectID} {
		s.appendEvent(ctx, &domain.TimelineEvent{
			ObjectID:  objID,
			EventType: domain.EventRelationRemove,
			Title:     fmt.Sprintf("Relation %q removed", rel.RelationType),
			CreatedBy: &actor.UserID,
		})
	}

	return nil
}

func counterpartOf(rel domain.InstanceRelation, objectID uuid.UUID) uuid.UUID {
	if rel.FromObjectID == objectID {
		return rel.ToObjectID
	}
	return rel.FromObjectID
}

type counterpart struct {
	displayName string
	typeName    string
}

// loadCounterparts batch-loads the counterpart objects and resolves their
// type names, caching each type lookup.
func (s *Service) loadCounterparts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]counterpart, error) {
	out := make(map[uuid.UUID]counterpart, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	objs, err := s.objects.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load counterpart objects: %w", err)
	}

	typeNames := make(map[uuid.UUID]string)
	for _, obj := range objs {
		name, ok := typeNames[obj.ObjectTypeID]
		if !ok {
			typ, err := s.types.GetByID(ctx, obj.ObjectTypeID)
			if err != nil {
				return nil, fmt.Errorf("resolve type %s: %w", obj.ObjectTypeID, err)
			}
			name = typ.Name
			typeNames[obj.ObjectTypeID] = name
		}
		out[obj.ID] = counterpart{displayName: obj.DisplayName(), typeName: name}
	}

	return out, nil
}
