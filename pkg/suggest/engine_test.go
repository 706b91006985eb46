package suggest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

func newTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type stubGraph struct {
	snapshot *contentgraph.Snapshot
}

func (g *stubGraph) LoadSnapshot(ctx context.Context, creatorID string) (*contentgraph.Snapshot, error) {
	return g.snapshot, nil
}

// stubClassifier returns canned scores keyed by candidate id
type stubClassifier struct {
	scores map[string]float64
	errs   map[string]error
}

func (c *stubClassifier) Score(ctx context.Context, parent, candidate *models.ContentNode) (float64, error) {
	if err, ok := c.errs[candidate.ID]; ok {
		return 0, err
	}
	return c.scores[candidate.ID], nil
}

func node(id, platform, contentType string) models.ContentNode {
	return models.ContentNode{
		ID:          id,
		CreatorID:   "creator-1",
		Platform:    platform,
		ExternalID:  "ext-" + id,
		ContentType: contentType,
		Title:       "title " + id,
		PublishedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSuggestRelationships(t *testing.T) {
	ctx := context.Background()

	t.Run("filters below the threshold", func(t *testing.T) {
		snapshot := contentgraph.NewSnapshot([]models.ContentNode{
			node("R", "youtube", "video"),
			node("A", "tiktok", "clip"),
			node("B", "instagram", "clip"),
		}, nil)
		classifier := &stubClassifier{scores: map[string]float64{"A": 0.85, "B": 0.4}}
		engine := NewEngine(Config{}, classifier, &stubGraph{snapshot: snapshot}, newTestLogger())

		suggestions, err := engine.SuggestRelationships(ctx, "creator-1", "R", nil, 0.6)
		require.NoError(t, err)

		require.Len(t, suggestions, 1)
		assert.Equal(t, "A", suggestions[0].TargetID)
		assert.Equal(t, "R", suggestions[0].SourceID)
		assert.Equal(t, 0.85, suggestions[0].Confidence)
	})

	t.Run("uses the default threshold when none is given", func(t *testing.T) {
		snapshot := contentgraph.NewSnapshot([]models.ContentNode{
			node("R", "youtube", "video"),
			node("A", "tiktok", "clip"),
		}, nil)
		classifier := &stubClassifier{scores: map[string]float64{"A": 0.59}}
		engine := NewEngine(Config{DefaultThreshold: 0.6}, classifier, &stubGraph{snapshot: snapshot}, newTestLogger())

		suggestions, err := engine.SuggestRelationships(ctx, "creator-1", "R", nil, 0)
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})

	t.Run("skips pairs already linked", func(t *testing.T) {
		nodes := []models.ContentNode{
			node("R", "youtube", "video"),
			node("A", "tiktok", "clip"),
			node("B", "instagram", "clip"),
		}
		edges := []models.RelationshipEdge{{
			ID: "e1", CreatorID: "creator-1", SourceID: "R", TargetID: "A",
			RelationshipType: models.RelationshipTypeClip, Confidence: 0.9,
		}}
		classifier := &stubClassifier{scores: map[string]float64{"A": 0.99, "B": 0.8}}
		engine := NewEngine(Config{}, classifier, &stubGraph{snapshot: contentgraph.NewSnapshot(nodes, edges)}, newTestLogger())

		suggestions, err := engine.SuggestRelationships(ctx, "creator-1", "R", nil, 0.6)
		require.NoError(t, err)

		require.Len(t, suggestions, 1)
		assert.Equal(t, "B", suggestions[0].TargetID)
	})

	t.Run("keeps the highest confidence per target", func(t *testing.T) {
		snapshot := contentgraph.NewSnapshot([]models.ContentNode{
			node("R", "youtube", "video"),
			node("A", "tiktok", "clip"),
		}, nil)
		classifier := &stubClassifier{scores: map[string]float64{"A": 0.7}}
		engine := NewEngine(Config{}, classifier, &stubGraph{snapshot: snapshot}, newTestLogger())

		// Duplicate ids in the caller-supplied pool must not yield duplicates
		suggestions, err := engine.SuggestRelationships(ctx, "creator-1", "R", []string{"A", "A", "A"}, 0.6)
		require.NoError(t, err)
		assert.Len(t, suggestions, 1)
	})

	t.Run("a classifier failure skips the candidate not the batch", func(t *testing.T) {
		snapshot := contentgraph.NewSnapshot([]models.ContentNode{
			node("R", "youtube", "video"),
			node("A", "tiktok", "clip"),
			node("B", "instagram", "clip"),
		}, nil)
		classifier := &stubClassifier{
			scores: map[string]float64{"B": 0.8},
			errs:   map[string]error{"A": fmt.Errorf("model unavailable")},
		}
		engine := NewEngine(Config{}, classifier, &stubGraph{snapshot: snapshot}, newTestLogger())

		suggestions, err := engine.SuggestRelationships(ctx, "creator-1", "R", nil, 0.6)
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, "B", suggestions[0].TargetID)
	})

	t.Run("sorts by confidence descending", func(t *testing.T) {
		snapshot := contentgraph.NewSnapshot([]models.ContentNode{
			node("R", "youtube", "video"),
			node("A", "tiktok", "clip"),
			node("B", "instagram", "clip"),
			node("C", "twitch", "video"),
		}, nil)
		classifier := &stubClassifier{scores: map[string]float64{"A": 0.7, "B": 0.95, "C": 0.8}}
		engine := NewEngine(Config{}, classifier, &stubGraph{snapshot: snapshot}, newTestLogger())

		suggestions, err := engine.SuggestRelationships(ctx, "creator-1", "R", nil, 0.6)
		require.NoError(t, err)

		require.Len(t, suggestions, 3)
		assert.Equal(t, []string{"B", "C", "A"}, []string{
			suggestions[0].TargetID, suggestions[1].TargetID, suggestions[2].TargetID,
		})
	})

	t.Run("rejects an unknown subject node", func(t *testing.T) {
		snapshot := contentgraph.NewSnapshot(nil, nil)
		engine := NewEngine(Config{}, &stubClassifier{}, &stubGraph{snapshot: snapshot}, newTestLogger())

		_, err := engine.SuggestRelationships(ctx, "creator-1", "missing", nil, 0.6)
		require.Error(t, err)
		assert.True(t, contentgraph.HasCode(err, contentgraph.ErrCodeInvalidReference))
	})
}

func TestInferRelationshipType(t *testing.T) {
	video := node("R", "youtube", "video")

	clip := node("A", "tiktok", "clip")
	assert.Equal(t, models.RelationshipTypeClip, inferRelationshipType(&video, &clip))

	repost := node("B", "instagram", "video")
	assert.Equal(t, models.RelationshipTypeRepost, inferRelationshipType(&video, &repost))

	post := node("C", "twitter", "post")
	assert.Equal(t, models.RelationshipTypeAdaptation, inferRelationshipType(&video, &post))
}

func TestHeuristicClassifier(t *testing.T) {
	classifier := NewHeuristicClassifier()
	ctx := context.Background()

	t.Run("scores near-identical cross-platform titles high", func(t *testing.T) {
		parent := node("R", "youtube", "video")
		parent.Title = "How to brew pour over coffee"
		candidate := node("A", "tiktok", "clip")
		candidate.Title = "How to brew pour over coffee"

		score, err := classifier.Score(ctx, &parent, &candidate)
		require.NoError(t, err)
		assert.Greater(t, score, 0.9)
	})

	t.Run("scores unrelated same-platform titles low", func(t *testing.T) {
		parent := node("R", "youtube", "video")
		parent.Title = "How to brew pour over coffee"
		candidate := node("A", "youtube", "video")
		candidate.Title = "Quarterly portfolio update"
		candidate.PublishedAt = parent.PublishedAt.AddDate(0, 6, 0)

		score, err := classifier.Score(ctx, &parent, &candidate)
		require.NoError(t, err)
		assert.Less(t, score, 0.5)
	})

	t.Run("is deterministic", func(t *testing.T) {
		parent := node("R", "youtube", "video")
		candidate := node("A", "tiktok", "clip")

		first, err := classifier.Score(ctx, &parent, &candidate)
		require.NoError(t, err)
		second, err := classifier.Score(ctx, &parent, &candidate)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
