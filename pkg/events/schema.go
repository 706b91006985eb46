package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Content events
	EventTypeContentCreated EventType = "content.created"

	// Relationship events
	EventTypeRelationshipCreated EventType = "relationship.created"
	EventTypeRelationshipUpdated EventType = "relationship.updated"
	EventTypeRelationshipDeleted EventType = "relationship.deleted"

	// Rollup events
	EventTypeRollupComputed EventType = "rollup.computed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	CreatorID     string    `json:"creator_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ContentCreatedEvent is emitted when a content node is registered
type ContentCreatedEvent struct {
	BaseEvent
	ContentID   string `json:"content_id"`
	Platform    string `json:"platform"`
	ExternalID  string `json:"external_id"`
	ContentType string `json:"content_type"`
}

// RelationshipEvent is emitted on relationship edge create, update and delete
type RelationshipEvent struct {
	BaseEvent
	EdgeID           string  `json:"edge_id"`
	SourceID         string  `json:"source_id"`
	TargetID         string  `json:"target_id"`
	RelationshipType string  `json:"relationship_type"`
	Confidence       float64 `json:"confidence"`
	CreatedBy        string  `json:"created_by"`
}

// RollupComputedEvent is emitted when a family rollup is computed fresh
type RollupComputedEvent struct {
	BaseEvent
	RootContentID       string    `json:"root_content_id"`
	PeriodStart         time.Time `json:"period_start"`
	PeriodEnd           time.Time `json:"period_end"`
	Views               float64   `json:"views"`
	UniqueReachEstimate float64   `json:"unique_reach_estimate"`
	ContentCount        int       `json:"content_count"`
	Partial             bool      `json:"partial"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, creatorID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		CreatorID:     creatorID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
