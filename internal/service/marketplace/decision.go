package marketplace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
)

// Decision is the outcome of accepting a proposal. When no deal type is
// registered the proposal itself stands in for the deal, so DealID equals
// the proposal id.
type Decision struct {
	ProposalID uuid.UUID `json:"proposal_id"`
	DealID     uuid.UUID `json:"deal_id"`
	Status     string    `json:"status"`
}

const (
	statusAccepted = "accepted"
	statusRejected = "rejected"
)

// AcceptProposal accepts a proposal on behalf of the project owner. The
// proposal's status module flips to accepted and, when a deal object type is
// registered, a deal object is created and linked to both the project and
// the proposal. Everything happens in one transaction.
func (s *Service) AcceptProposal(ctx context.Context, proposalID uuid.UUID) (*Decision, error) {
	actor, proposal, project, err := s.authorizeDecision(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	dealType, err := s.types.GetByName(ctx, TypeDeal)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("resolve deal type: %w", err)
	}

	dealID := proposal.ID
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.setProposalStatus(ctx, proposal, statusAccepted); err != nil {
			return err
		}

		if dealType == nil {
			return nil
		}

		deal, err := s.createDeal(ctx, actor, dealType, proposal, project)
		if err != nil {
			return err
		}
		dealID = deal.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionUpdate,
		Category:   auditCategory,
		EntityType: "proposal",
		EntityID:   &proposal.ID,
		NewValues: map[string]any{
			"status":  statusAccepted,
			"deal_id": dealID.String(),
		},
	})

	s.log.InfoContext(ctx, "proposal accepted",
		slog.String("proposal_id", proposal.ID.String()),
		slog.String("deal_id", dealID.String()),
	)

	return &Decision{ProposalID: proposal.ID, DealID: dealID, Status: statusAccepted}, nil
}

// RejectProposal rejects a proposal on behalf of the project owner. Only the
// proposal's status changes; nothing is created and the submitter stays
// blocked from proposing again.
func (s *Service) RejectProposal(ctx context.Context, proposalID uuid.UUID) (*Decision, error) {
	actor, proposal, _, err := s.authorizeDecision(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.setProposalStatus(ctx, proposal, statusRejected)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditRecord{
		UserID:     actor.UserID,
		Action:     domain.AuditActionUpdate,
		Category:   auditCategory,
		EntityType: "proposal",
		EntityID:   &proposal.ID,
		NewValues:  map[string]any{"status": statusRejected},
	})

	s.log.InfoContext(ctx, "proposal rejected",
		slog.String("proposal_id", proposal.ID.String()),
	)

	return &Decision{ProposalID: proposal.ID, DealID: proposal.ID, Status: statusRejected}, nil
}

// authorizeDecision loads the proposal and its project and checks that the
// actor owns the project (or created it when no owner is set).
func (s *Service) authorizeDecision(ctx context.Context, proposalID uuid.UUID) (domain.Actor, *domain.ObjectInstance, *domain.ObjectInstance, error) {
	actor, err := requireActor(ctx, domain.PermObjectsWrite)
	if err != nil {
		return domain.Actor{}, nil, nil, err
	}
	if proposalID == uuid.Nil {
		return domain.Actor{}, nil, nil, domain.NewValidationError("proposal_id", "required")
	}

	proposal, err := s.objects.GetByID(ctx, proposalID)
	if err != nil {
		return domain.Actor{}, nil, nil, fmt.Errorf("get proposal: %w", err)
	}

	projectID, err := s.projectOf(ctx, proposal.ID)
	if err != nil {
		return domain.Actor{}, nil, nil, err
	}

	project, err := s.objects.GetByID(ctx, projectID)
	if err != nil {
		return domain.Actor{}, nil, nil, fmt.Errorf("get project: %w", err)
	}

	if !canDecide(actor, project) {
		return domain.Actor{}, nil, nil, domain.ErrForbidden
	}

	return actor, proposal, project, nil
}

// projectOf resolves the project a proposal targets via its proposal_for
// relation.
func (s *Service) projectOf(ctx context.Context, proposalID uuid.UUID) (uuid.UUID, error) {
	rels, err := s.relations.ListForObject(ctx, proposalID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list proposal relations: %w", err)
	}

	for _, rel := range rels {
		if rel.RelationType == domain.RelationProposalFor && rel.FromObjectID == proposalID {
			return rel.ToObjectID, nil
		}
	}

	return uuid.Nil, domain.NewValidationError("proposal_id", "object is not a proposal")
}

// setProposalStatus writes the decision into the proposal's status module:
// the stage module when attached, otherwise the proposal_status module.
// Both status and stage fields are set so stage-driven processors follow.
func (s *Service) setProposalStatus(ctx context.Context, proposal *domain.ObjectInstance, status string) error {
	att, ok := proposal.Module(domain.ModuleStage)
	if !ok {
		att, ok = proposal.Module(domain.ModuleProposal)
	}
	if !ok {
		return domain.NewValidationError("proposal", "proposal carries no status module")
	}

	data := make(domain.Record, len(att.Data)+2)
	for k, v := range att.Data {
		data[k] = v
	}
	data["status"] = status
	data["stage"] = status

	if _, err := s.objects.UpsertModule(ctx, proposal.ID, att.ModuleID, data); err != nil {
		return fmt.Errorf("write proposal status: %w", err)
	}

	return nil
}

// createDeal builds the deal object an accepted proposal spawns: an identity
// derived from the proposal, a won/active stage, the proposal's monetary
// data copied verbatim, plus relations to the project and the proposal.
func (s *Service) createDeal(ctx context.Context, actor domain.Actor, dealType *domain.ObjectTypeDefinition, proposal, project *domain.ObjectInstance) (*domain.ObjectInstance, error) {
	deal, err := s.objects.Create(ctx, &domain.ObjectInstance{
		ObjectTypeID: dealType.ID,
		OwnerID:      project.OwnerID,
		CreatedBy:    actor.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}

	dealModules := map[string]domain.Record{
		domain.ModuleIdentity: {"name": "Deal: " + proposal.DisplayName()},
		domain.ModuleStage:    {"stage": "won", "status": "active"},
	}
	if monetary, ok := proposal.Module(domain.ModuleMonetary); ok {
		dealModules[domain.ModuleMonetary] = monetary.Data
	}

	for name, data := range dealModules {
		def, err := s.modules.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve module %q: %w", name, err)
		}
		if _, err := s.objects.UpsertModule(ctx, deal.ID, def.ID, data); err != nil {
			return nil, fmt.Errorf("write deal module %q: %w", name, err)
		}
	}

	links := []domain.InstanceRelation{
		{FromObjectID: deal.ID, ToObjectID: project.ID, RelationType: domain.RelationDealFromProject},
		{FromObjectID: deal.ID, ToObjectID: proposal.ID, RelationType: domain.RelationDealFromProposal},
	}
	for _, link := range links {
		if _, err := s.relations.Create(ctx, &link); err != nil {
			return nil, fmt.Errorf("link deal (%s): %w", link.RelationType, err)
		}
	}

	return deal, nil
}
