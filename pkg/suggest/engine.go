// Package suggest proposes relationship edges from classifier confidence
// scores. Suggestions are surfaced only; acceptance goes back through the
// graph builder's validation.
package suggest

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/metrics"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// GraphReader supplies a consistent snapshot of a creator's graph
type GraphReader interface {
	LoadSnapshot(ctx context.Context, creatorID string) (*contentgraph.Snapshot, error)
}

// Config tunes the suggestion engine
type Config struct {
	// DefaultThreshold filters suggestions when the caller does not
	// supply one
	DefaultThreshold float64
	// MaxPoolSize bounds the candidate pool when the caller does not
	// supply one
	MaxPoolSize int
}

// Engine scores candidate pairs and filters them into suggestions
type Engine struct {
	cfg        Config
	classifier Classifier
	graph      GraphReader
	logger     ectologger.Logger
}

// NewEngine creates a suggestion engine
func NewEngine(cfg Config, classifier Classifier, graph GraphReader, logger ectologger.Logger) *Engine {
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 0.6
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 200
	}
	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		graph:      graph,
		logger:     logger,
	}
}

// SuggestRelationships scores every candidate against the given content node
// and returns the pairs above the threshold, deduplicated against existing
// edges and keeping the highest confidence per target. An empty candidate
// pool defaults to the creator's other nodes, bounded by MaxPoolSize. A
// scoring failure skips that candidate, never the batch.
func (e *Engine) SuggestRelationships(ctx context.Context, creatorID, contentID string, candidatePool []string, threshold float64) ([]models.RelationshipSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggest.Engine.SuggestRelationships")
	defer span.End()

	if threshold <= 0 {
		threshold = e.cfg.DefaultThreshold
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id": creatorID,
		"content_id": contentID,
		"threshold":  threshold,
	})

	snapshot, err := e.graph.LoadSnapshot(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	parent, ok := snapshot.Node(contentID)
	if !ok {
		return nil, contentgraph.NewInvalidReferenceError(contentID, "", "content node does not exist")
	}

	candidates := e.resolvePool(snapshot, contentID, candidatePool)

	best := make(map[string]models.RelationshipSuggestion)
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		score, err := e.classifier.Score(ctx, &parent, &candidate)
		if err != nil {
			log.WithError(err).WithField("candidate_id", candidate.ID).Warn("Classifier failed for candidate, skipping")
			metrics.RecordSuggestionOutcome("error")
			continue
		}

		if score < threshold {
			metrics.RecordSuggestionOutcome("filtered")
			continue
		}

		if existing, ok := best[candidate.ID]; ok && existing.Confidence >= score {
			continue
		}
		best[candidate.ID] = models.RelationshipSuggestion{
			SourceID:         contentID,
			TargetID:         candidate.ID,
			RelationshipType: inferRelationshipType(&parent, &candidate),
			Confidence:       score,
		}
		metrics.RecordSuggestionOutcome("suggested")
	}

	suggestions := make([]models.RelationshipSuggestion, 0, len(best))
	for _, s := range best {
		suggestions = append(suggestions, s)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].TargetID < suggestions[j].TargetID
	})

	return suggestions, nil
}

// resolvePool expands the candidate pool to concrete nodes, skipping the
// subject itself and pairs already linked by an edge
func (e *Engine) resolvePool(snapshot *contentgraph.Snapshot, contentID string, candidatePool []string) []models.ContentNode {
	ids := candidatePool
	if len(ids) == 0 {
		ids = snapshot.NodeIDs()
	}

	candidates := make([]models.ContentNode, 0, len(ids))
	for _, id := range ids {
		if id == contentID {
			continue
		}
		node, ok := snapshot.Node(id)
		if !ok {
			continue
		}
		if snapshot.Linked(contentID, id) {
			metrics.RecordSuggestionOutcome("already_linked")
			continue
		}
		candidates = append(candidates, node)
		if len(candidates) >= e.cfg.MaxPoolSize {
			break
		}
	}
	return candidates
}

// inferRelationshipType picks the most plausible edge type for a pair. Same
// content type on another platform reads as a repost; short-form derived
// from long-form reads as a clip; anything else is an adaptation.
func inferRelationshipType(parent, candidate *models.ContentNode) models.RelationshipType {
	if parent.ContentType == candidate.ContentType {
		return models.RelationshipTypeRepost
	}
	switch candidate.ContentType {
	case "clip", "short", "reel":
		return models.RelationshipTypeClip
	}
	return models.RelationshipTypeAdaptation
}
