package objecttype

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/pkg/ctxutil"
)

// CreateSchemaRelation declares a typed relation between two object types.
// Both endpoints must exist. Self-referencing declarations are allowed, a
// type may relate to itself (for example an org hierarchy).
func (s *Service) CreateSchemaRelation(ctx context.Context, input CreateSchemaRelationInput) (*domain.SchemaRelationDefinition, error) {
	actor, err := requireActor(ctx, domain.PermTypesManage)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	for _, typeID := range []uuid.UUID{input.SourceTypeID, input.TargetTypeID} {
		if _, err := s.types.GetByID(ctx, typeID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NewValidationError("object_type", fmt.Sprintf("type %s does not exist", typeID))
			}
			return nil, fmt.Errorf("check type %s: %w", typeID, err)
		}
	}

	def, err := s.relations.CreateSchemaRelation(ctx, &domain.SchemaRelationDefinition{
		SourceTypeID:    input.SourceTypeID,
		TargetTypeID:    input.TargetTypeID,
		RelationType:    input.RelationType,
		SourceFieldName: input.SourceFieldName,
		TargetFieldName: input.TargetFieldName,
		IsActive:        true,
		Metadata:        input.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create schema relation: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "schema_relation",
		EntityID:   &def.ID,
		NewValues: map[string]any{
			"source_type_id": def.SourceTypeID.String(),
			"target_type_id": def.TargetTypeID.String(),
			"relation_type":  def.RelationType.String(),
		},
	})

	s.log.InfoContext(ctx, "schema relation created",
		slog.String("relation_id", def.ID.String()),
		slog.String("relation_type", def.RelationType.String()),
	)

	return def, nil
}

// ListSchemaRelations returns declared relations. With a non-nil typeID only
// relations where the type is source or target are returned.
func (s *Service) ListSchemaRelations(ctx context.Context, typeID *uuid.UUID) ([]*domain.SchemaRelationDefinition, error) {
	if _, ok := ctxutil.ActorFromCtx(ctx); !ok {
		return nil, domain.ErrUnauthorized
	}

	filter := uuid.Nil
	if typeID != nil {
		filter = *typeID
	}

	defs, err := s.relations.ListSchemaRelations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list schema relations: %w", err)
	}

	return defs, nil
}

// UpdateSchemaRelation toggles a declared relation's is_active flag.
// Deactivating only hides the declaration from tooling; existing instance
// relations are neither deleted nor hidden.
func (s *Service) UpdateSchemaRelation(ctx context.Context, id uuid.UUID, isActive bool) (*domain.SchemaRelationDefinition, error) {
	actor, err := requireActor(ctx, domain.PermTypesManage)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, domain.NewValidationError("relation_id", "required")
	}

	def, err := s.relations.UpdateSchemaRelationActive(ctx, id, isActive)
	if err != nil {
		return nil, fmt.Errorf("update schema relation: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionUpdate,
		Category:   auditCategory,
		EntityType: "schema_relation",
		EntityID:   &def.ID,
		NewValues:  map[string]any{"is_active": def.IsActive},
	})

	s.log.InfoContext(ctx, "schema relation updated",
		slog.String("relation_id", def.ID.String()),
		slog.Bool("is_active", def.IsActive),
	)

	return def, nil
}

// DeleteSchemaRelation removes a declared relation. Instance relations are
// untouched, declarations never govern stored links.
func (s *Service) DeleteSchemaRelation(ctx context.Context, id uuid.UUID) error {
	actor, err := requireActor(ctx, domain.PermTypesManage)
	if err != nil {
		return err
	}
	if id == uuid.Nil {
		return domain.NewValidationError("relation_id", "required")
	}

	if err := s.relations.DeleteSchemaRelation(ctx, id); err != nil {
		return fmt.Errorf("delete schema relation: %w", err)
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionDelete,
		Category:   auditCategory,
		EntityType: "schema_relation",
		EntityID:   &id,
	})

	return nil
}
