package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/schema"
)

// SubmitProposalInput holds the parameters for proposing on a project.
// Modules maps module name to the proposal's initial data, keyed the same
// way object creation is.
type SubmitProposalInput struct {
	ProjectID uuid.UUID
	Modules   map[string]domain.Record
}

// Validate checks all fields and collects all errors.
func (i SubmitProposalInput) Validate() error {
	var errs []domain.FieldError

	if i.ProjectID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "project_id", Message: "required"})
	}

	if err := domain.NewValidationErrors(errs); err != nil {
		return err
	}
	return nil
}

// SubmitProposal creates a proposal object against a listed project and
// links it with a proposal_for relation, both in one transaction. A user
// gets one proposal per project; earlier proposals block resubmission
// regardless of their outcome, a rejected proposal is final.
func (s *Service) SubmitProposal(ctx context.Context, input SubmitProposalInput) (*domain.ObjectInstance, error) {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	project, err := s.objects.GetByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("project_id", "project does not exist")
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	if !project.HasModule(domain.ModulePublicProject) {
		return nil, domain.NewValidationError("project_id", "project is not publicly listed")
	}

	dup, err := s.hasProposalFrom(ctx, project.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("proposal for this project already submitted: %w", domain.ErrAlreadyExists)
	}

	proposalType, err := s.types.GetByName(ctx, TypeProposal)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("proposal", "proposal object type is not registered")
		}
		return nil, fmt.Errorf("resolve proposal type: %w", err)
	}

	names, validated, defsByName, err := s.prepareModules(ctx, proposalType, input.Modules)
	if err != nil {
		return nil, err
	}

	var proposal *domain.ObjectInstance
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		obj, err := s.objects.Create(ctx, &domain.ObjectInstance{
			ObjectTypeID: proposalType.ID,
			CreatedBy:    actor.UserID,
		})
		if err != nil {
			return fmt.Errorf("create proposal: %w", err)
		}

		for _, name := range names {
			def := defsByName[name]
			att, err := s.objects.UpsertModule(ctx, obj.ID, def.ID, validated[name])
			if err != nil {
				return fmt.Errorf("write proposal module %q: %w", name, err)
			}
			att.ModuleName = def.Name
			obj.Modules = append(obj.Modules, *att)
		}

		if _, err := s.relations.Create(ctx, &domain.InstanceRelation{
			FromObjectID: obj.ID,
			ToObjectID:   project.ID,
			RelationType: domain.RelationProposalFor,
		}); err != nil {
			return fmt.Errorf("link proposal to project: %w", err)
		}

		proposal = obj
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionCreate,
		Category:   auditCategory,
		EntityType: "proposal",
		EntityID:   &proposal.ID,
		NewValues:  map[string]any{"project_id": project.ID.String()},
	})

	s.log.InfoContext(ctx, "proposal submitted",
		slog.String("proposal_id", proposal.ID.String()),
		slog.String("project_id", project.ID.String()),
	)

	return proposal, nil
}

// hasProposalFrom reports whether the user already proposed on the project.
// Rejected proposals count, the block is permanent.
func (s *Service) hasProposalFrom(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	rels, err := s.relations.ListForObject(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("list project relations: %w", err)
	}

	var proposalIDs []uuid.UUID
	for _, rel := range rels {
		if rel.RelationType == domain.RelationProposalFor && rel.ToObjectID == projectID {
			proposalIDs = append(proposalIDs, rel.FromObjectID)
		}
	}
	if len(proposalIDs) == 0 {
		return false, nil
	}

	proposals, err := s.objects.ListByIDs(ctx, proposalIDs)
	if err != nil {
		return false, fmt.Errorf("load existing proposals: %w", err)
	}
	for _, p := range proposals {
		if p.CreatedBy == userID {
			return true, nil
		}
	}

	return false, nil
}

// prepareModules resolves the type's bindings, enforces required presence
// and membership, and returns defaulted validated data per module name.
func (s *Service) prepareModules(ctx context.Context, typ *domain.ObjectTypeDefinition, supplied map[string]domain.Record) ([]string, map[string]domain.Record, map[string]*domain.ModuleDefinition, error) {
	defsByName := make(map[string]*domain.ModuleDefinition, len(typ.Modules))
	for _, b := range typ.Modules {
		def, err := s.modules.GetByID(ctx, b.ModuleID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve bound module %s: %w", b.ModuleID, err)
		}
		defsByName[def.Name] = def
		if b.Required {
			if _, ok := supplied[def.Name]; !ok {
				return nil, nil, nil, domain.NewValidationError("modules", fmt.Sprintf("required module %q missing", def.Name))
			}
		}
	}

	names := make([]string, 0, len(supplied))
	for name := range supplied {
		if _, ok := defsByName[name]; !ok {
			return nil, nil, nil, domain.NewValidationError("modules", fmt.Sprintf("module %q is not bound to the proposal type", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	validated := make(map[string]domain.Record, len(names))
	for _, name := range names {
		def := defsByName[name]
		compiled, err := s.schemas.ForModule(def)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("compile schema for module %q: %w", name, err)
		}
		data := schema.ApplyDefaults(def.Schema, supplied[name])
		if errs := compiled.Validate(data); len(errs) > 0 {
			return nil, nil, nil, domain.NewValidationErrors(errs)
		}
		validated[name] = data
	}

	return names, validated, defsByName, nil
}
