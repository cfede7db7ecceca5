package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a timeline event.
type EventType string

const (
	EventStatusChange   EventType = "status_change"
	EventNote           EventType = "note"
	EventRelationAdded  EventType = "relation_added"
	EventRelationRemove EventType = "relation_removed"
	EventModuleAttached EventType = "module_attached"
	EventModuleDetached EventType = "module_detached"
	EventCustom         EventType = "custom"
)

func (t EventType) String() string { return string(t) }

func (t EventType) IsValid() bool {
	switch t {
	case EventStatusChange, EventNote, EventRelationAdded, EventRelationRemove,
		EventModuleAttached, EventModuleDetached, EventCustom:
		return true
	}
	return false
}

// TimelineEvent is one entry of an object's append-only history. Events are
// never mutated or deleted by the engine.
type TimelineEvent struct {
	ID          uuid.UUID
	ObjectID    uuid.UUID
	EventType   EventType
	Title       string
	Description *string
	Metadata    map[string]any
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
}
