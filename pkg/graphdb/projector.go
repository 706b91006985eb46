package graphdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// Projector keeps the Memgraph mirror of content nodes and relationship
// edges current. Projection is best-effort; callers log and continue when a
// write fails and the mirror catches up on the next mutation.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a graph projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// ProjectNode merges a content node into the graph
func (p *Projector) ProjectNode(ctx context.Context, node *models.ContentNode) error {
	ctx, span := tracing.StartSpan(ctx, "graphdb.Projector.ProjectNode")
	defer span.End()

	cypher := `
		MERGE (c:Content {id: $id, creator_id: $creator_id})
		SET c.platform = $platform,
			c.external_id = $external_id,
			c.content_type = $content_type,
			c.title = $title,
			c.published_at = $published_at
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":           node.ID,
			"creator_id":   node.CreatorID,
			"platform":     node.Platform,
			"external_id":  node.ExternalID,
			"content_type": node.ContentType,
			"title":        node.Title,
			"published_at": node.PublishedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("content_id", node.ID).Error("Failed to project content node")
		return fmt.Errorf("failed to project content node: %w", err)
	}

	return nil
}

// RemoveNode detaches and deletes a content node from the graph
func (p *Projector) RemoveNode(ctx context.Context, creatorID, contentID string) error {
	ctx, span := tracing.StartSpan(ctx, "graphdb.Projector.RemoveNode")
	defer span.End()

	cypher := `
		MATCH (c:Content {id: $id, creator_id: $creator_id})
		DETACH DELETE c
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":         contentID,
			"creator_id": creatorID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("content_id", contentID).Error("Failed to remove content node from graph")
		return fmt.Errorf("failed to remove content node: %w", err)
	}

	return nil
}

// ProjectEdge merges a relationship edge into the graph. The endpoint nodes
// are merged first so projection never depends on node sync ordering.
func (p *Projector) ProjectEdge(ctx context.Context, edge *models.RelationshipEdge) error {
	ctx, span := tracing.StartSpan(ctx, "graphdb.Projector.ProjectEdge")
	defer span.End()

	cypher := fmt.Sprintf(`
		MERGE (from:Content {id: $source_id, creator_id: $creator_id})
		MERGE (to:Content {id: $target_id, creator_id: $creator_id})
		MERGE (from)-[r:%s {creator_id: $creator_id}]->(to)
		SET r.id = $edge_id,
			r.confidence = $confidence,
			r.created_by = $created_by
	`, relationshipLabel(edge.RelationshipType))

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"edge_id":    edge.ID,
			"creator_id": edge.CreatorID,
			"source_id":  edge.SourceID,
			"target_id":  edge.TargetID,
			"confidence": edge.Confidence,
			"created_by": string(edge.CreatedBy),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_id": edge.SourceID,
			"target_id": edge.TargetID,
		}).Error("Failed to project relationship edge")
		return fmt.Errorf("failed to project relationship edge: %w", err)
	}

	return nil
}

// RemoveEdge deletes the projected edge between two content nodes
func (p *Projector) RemoveEdge(ctx context.Context, edge *models.RelationshipEdge) error {
	ctx, span := tracing.StartSpan(ctx, "graphdb.Projector.RemoveEdge")
	defer span.End()

	cypher := `
		MATCH (:Content {id: $source_id, creator_id: $creator_id})-[r {creator_id: $creator_id}]->(:Content {id: $target_id, creator_id: $creator_id})
		DELETE r
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"creator_id": edge.CreatorID,
			"source_id":  edge.SourceID,
			"target_id":  edge.TargetID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_id": edge.SourceID,
			"target_id": edge.TargetID,
		}).Error("Failed to remove relationship edge from graph")
		return fmt.Errorf("failed to remove relationship edge: %w", err)
	}

	return nil
}

// relationshipLabel maps a relationship type to a Cypher relationship label.
// Labels cannot be parameterized so the type is sanitized and uppercased.
func relationshipLabel(t models.RelationshipType) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(string(t)) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "DERIVED_FROM"
	}
	return b.String()
}
