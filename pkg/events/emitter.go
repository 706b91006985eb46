// Package events handles event emission for content and relationship
// lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/kafka"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes analytics lifecycle events to the output topic
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitContentCreated emits a content.created event
func (e *Emitter) EmitContentCreated(ctx context.Context, node *models.ContentNode) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContentCreated")
	defer span.End()

	data, _ := json.Marshal(ContentCreatedEvent{
		BaseEvent:   NewBaseEvent(EventTypeContentCreated, node.CreatorID),
		ContentID:   node.ID,
		Platform:    node.Platform,
		ExternalID:  node.ExternalID,
		ContentType: node.ContentType,
	})

	event := &kafka.AnalyticsEvent{
		EventType: string(EventTypeContentCreated),
		CreatorID: node.CreatorID,
		EntityID:  node.ID,
		Data:      data,
	}

	if err := e.producer.PublishEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit content.created event")
		return err
	}

	return nil
}

// EmitRelationshipCreated emits a relationship.created event
func (e *Emitter) EmitRelationshipCreated(ctx context.Context, edge *models.RelationshipEdge) error {
	return e.emitRelationship(ctx, EventTypeRelationshipCreated, edge)
}

// EmitRelationshipUpdated emits a relationship.updated event
func (e *Emitter) EmitRelationshipUpdated(ctx context.Context, edge *models.RelationshipEdge) error {
	return e.emitRelationship(ctx, EventTypeRelationshipUpdated, edge)
}

// EmitRelationshipDeleted emits a relationship.deleted event
func (e *Emitter) EmitRelationshipDeleted(ctx context.Context, edge *models.RelationshipEdge) error {
	return e.emitRelationship(ctx, EventTypeRelationshipDeleted, edge)
}

func (e *Emitter) emitRelationship(ctx context.Context, eventType EventType, edge *models.RelationshipEdge) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emitRelationship")
	defer span.End()

	data, _ := json.Marshal(RelationshipEvent{
		BaseEvent:        NewBaseEvent(eventType, edge.CreatorID),
		EdgeID:           edge.ID,
		SourceID:         edge.SourceID,
		TargetID:         edge.TargetID,
		RelationshipType: string(edge.RelationshipType),
		Confidence:       edge.Confidence,
		CreatedBy:        string(edge.CreatedBy),
	})

	event := &kafka.AnalyticsEvent{
		EventType: string(eventType),
		CreatorID: edge.CreatorID,
		EntityID:  edge.TargetID,
		Data:      data,
	}

	if err := e.producer.PublishEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("event_type", string(eventType)).Error("Failed to emit relationship event")
		return err
	}

	return nil
}

// EmitRollupComputed emits a rollup.computed event so downstream consumers
// can react to fresh family metrics
func (e *Emitter) EmitRollupComputed(ctx context.Context, creatorID string, result *models.FamilyMetrics) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRollupComputed")
	defer span.End()

	data, _ := json.Marshal(RollupComputedEvent{
		BaseEvent:           NewBaseEvent(EventTypeRollupComputed, creatorID),
		RootContentID:       result.RootContentID,
		PeriodStart:         result.Period.Start,
		PeriodEnd:           result.Period.End,
		Views:               result.Aggregate.Views,
		UniqueReachEstimate: result.UniqueReachEstimate,
		ContentCount:        result.ContentCount,
		Partial:             result.Partial,
	})

	event := &kafka.AnalyticsEvent{
		EventType: string(EventTypeRollupComputed),
		CreatorID: creatorID,
		EntityID:  result.RootContentID,
		Data:      data,
	}

	if err := e.producer.PublishEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit rollup.computed event")
		return err
	}

	return nil
}
