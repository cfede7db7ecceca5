package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstanceRelation is an ad-hoc edge between two object instances. The
// relation type is a free-form string and is deliberately not checked
// against schema relation definitions. Self-relations are forbidden.
type InstanceRelation struct {
	ID           uuid.UUID
	FromObjectID uuid.UUID
	ToObjectID   uuid.UUID
	RelationType string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// RelationDirection tags an edge relative to the object it was queried for.
type RelationDirection string

const (
	DirectionFrom RelationDirection = "from"
	DirectionTo   RelationDirection = "to"
)

// RelatedObject is one edge of an object's relation list, annotated with
// the counterpart's derived display name and type name so callers can
// render either direction without a second query.
type RelatedObject struct {
	Relation    InstanceRelation
	Direction   RelationDirection
	ObjectID    uuid.UUID
	DisplayName string
	TypeName    string
}

// Relation kinds the marketplace workflow creates. Any other string is
// equally valid at this layer.
const (
	RelationProposalFor      = "proposal_for"
	RelationDealFromProject  = "deal_from_project"
	RelationDealFromProposal = "deal_from_proposal"
)
