package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction classifies a mutation for the audit log.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditRecord is one fire-and-forget audit log entry. Failures writing it
// never roll back the mutation it describes.
type AuditRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Action     AuditAction
	Category   string
	EntityType string
	EntityID   *uuid.UUID
	OldValues  map[string]any
	NewValues  map[string]any
	Metadata   map[string]any
	CreatedAt  time.Time
}
