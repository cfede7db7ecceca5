package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/substratehq/substrate/internal/domain"
	"github.com/substratehq/substrate/internal/service/marketplace"
	"github.com/substratehq/substrate/internal/service/object"
)

// marketplaceService defines the minimal interface needed by MarketplaceHandler.
type marketplaceService interface {
	ListListings(ctx context.Context) ([]marketplace.Listing, error)
	SubmitProposal(ctx context.Context, input marketplace.SubmitProposalInput) (*domain.ObjectInstance, error)
	AcceptProposal(ctx context.Context, proposalID uuid.UUID) (*marketplace.Decision, error)
	RejectProposal(ctx context.Context, proposalID uuid.UUID) (*marketplace.Decision, error)
}

// MarketplaceHandler serves the proposal workflow REST endpoints.
type MarketplaceHandler struct {
	svc marketplaceService
	log *slog.Logger
}

// NewMarketplaceHandler creates a MarketplaceHandler.
func NewMarketplaceHandler(svc marketplaceService, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc, log: logger.With("handler", "marketplace")}
}

type listingResponse struct {
	Object      objectResponse `json:"object"`
	DisplayName string         `json:"display_name"`
}

// ListListings handles GET /api/v1/marketplace/listings.
func (h *MarketplaceHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.ListListings(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, listingResponse{
			Object:      toObjectView(l.Object, l.DisplayName),
			DisplayName: l.DisplayName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": out})
}

type submitProposalRequest struct {
	ProjectID string                   `json:"project_id"`
	Modules   map[string]domain.Record `json:"modules"`
}

// SubmitProposal handles POST /api/v1/marketplace/proposals.
func (h *MarketplaceHandler) SubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req submitProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	projectID, _ := uuid.Parse(req.ProjectID)

	proposal, err := h.svc.SubmitProposal(r.Context(), marketplace.SubmitProposalInput{
		ProjectID: projectID,
		Modules:   req.Modules,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toObjectView(proposal, proposal.DisplayName()))
}

type decisionResponse struct {
	ProposalID string `json:"proposal_id"`
	DealID     string `json:"deal_id"`
	Status     string `json:"status"`
}

// AcceptProposal handles POST /api/v1/marketplace/proposals/{id}/accept.
func (h *MarketplaceHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.AcceptProposal)
}

// RejectProposal handles POST /api/v1/marketplace/proposals/{id}/reject.
func (h *MarketplaceHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.RejectProposal)
}

func (h *MarketplaceHandler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*marketplace.Decision, error)) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	decision, err := fn(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		ProposalID: decision.ProposalID.String(),
		DealID:     decision.DealID.String(),
		Status:     decision.Status,
	})
}

// toObjectView adapts a bare instance plus derived display name into the
// shared object response shape.
func toObjectView(obj *domain.ObjectInstance, displayName string) objectResponse {
	return toObjectResponse(object.View{Object: obj, DisplayName: displayName})
}
