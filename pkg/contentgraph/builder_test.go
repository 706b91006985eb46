package contentgraph

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

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

func newTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type memNodeStore struct {
	nodes map[string]models.ContentNode
}

func (s *memNodeStore) Get(ctx context.Context, id string) (*models.ContentNode, error) {
	if n, ok := s.nodes[id]; ok {
		return &n, nil
	}
	return nil, nil
}

func (s *memNodeStore) ListByCreator(ctx context.Context, creatorID string) ([]models.ContentNode, error) {
	out := make([]models.ContentNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.CreatorID == creatorID {
			out = append(out, n)
		}
	}
	return out, nil
}

type memEdgeStore struct {
	edges []models.RelationshipEdge
}

func (s *memEdgeStore) ListByCreator(ctx context.Context, creatorID string) ([]models.RelationshipEdge, error) {
	out := make([]models.RelationshipEdge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.CreatorID == creatorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memEdgeStore) Create(ctx context.Context, edge *models.RelationshipEdge) error {
	s.edges = append(s.edges, *edge)
	return nil
}

func (s *memEdgeStore) Update(ctx context.Context, edge *models.RelationshipEdge) error {
	for i, e := range s.edges {
		if e.SourceID == edge.SourceID && e.TargetID == edge.TargetID {
			s.edges[i] = *edge
			return nil
		}
	}
	return fmt.Errorf("edge not found")
}

func (s *memEdgeStore) Delete(ctx context.Context, creatorID, sourceID, targetID string) error {
	for i, e := range s.edges {
		if e.CreatorID == creatorID && e.SourceID == sourceID && e.TargetID == targetID {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edge not found")
}

type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	return fn()
}

type memVersions struct {
	graphBumps int
}

func (v *memVersions) BumpGraphVersion(ctx context.Context, creatorID string) error {
	v.graphBumps++
	return nil
}

func newTestBuilder(t *testing.T, nodeIDs ...string) (*Builder, *memEdgeStore, *memVersions) {
	t.Helper()

	nodes := &memNodeStore{nodes: map[string]models.ContentNode{}}
	for i, id := range nodeIDs {
		nodes.nodes[id] = models.ContentNode{
			ID:          id,
			CreatorID:   "creator-1",
			Platform:    fmt.Sprintf("platform-%d", i%3),
			ExternalID:  "ext-" + id,
			ContentType: "video",
			PublishedAt: time.Now().UTC(),
		}
	}

	edges := &memEdgeStore{}
	versions := &memVersions{}
	builder := NewBuilder(Config{MaxFamilyDepth: 10}, nodes, edges, noopLocker{}, versions, nil, nil, newTestLogger())
	return builder, edges, versions
}

func addEdge(t *testing.T, b *Builder, source, target string) *models.RelationshipEdge {
	t.Helper()
	edge, err := b.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
		SourceID:         source,
		TargetID:         target,
		RelationshipType: models.RelationshipTypeClip,
		Confidence:       0.9,
	}, models.EdgeOriginUser)
	require.NoError(t, err)
	return edge
}

func TestAddEdge(t *testing.T) {
	t.Run("creates a valid edge", func(t *testing.T) {
		builder, edges, versions := newTestBuilder(t, "R", "D")

		edge := addEdge(t, builder, "R", "D")

		assert.NotEmpty(t, edge.ID)
		assert.Equal(t, "R", edge.SourceID)
		assert.Equal(t, "D", edge.TargetID)
		assert.Len(t, edges.edges, 1)
		assert.Equal(t, 1, versions.graphBumps)
	})

	t.Run("identical re-add is a no-op", func(t *testing.T) {
		builder, edges, versions := newTestBuilder(t, "R", "D")

		first := addEdge(t, builder, "R", "D")
		second := addEdge(t, builder, "R", "D")

		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, edges.edges, 1)
		assert.Equal(t, 1, versions.graphBumps, "no-op must not bump the graph version")
	})

	t.Run("same pair with new type updates in place", func(t *testing.T) {
		builder, edges, _ := newTestBuilder(t, "R", "D")
		addEdge(t, builder, "R", "D")

		updated, err := builder.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
			SourceID:         "R",
			TargetID:         "D",
			RelationshipType: models.RelationshipTypeRepost,
			Confidence:       0.5,
		}, models.EdgeOriginUser)

		require.NoError(t, err)
		assert.Equal(t, models.RelationshipTypeRepost, updated.RelationshipType)
		assert.Equal(t, 0.5, updated.Confidence)
		assert.Len(t, edges.edges, 1)
	})

	t.Run("rejects a second parent", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "A", "B", "D")
		addEdge(t, builder, "A", "D")

		_, err := builder.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
			SourceID:         "B",
			TargetID:         "D",
			RelationshipType: models.RelationshipTypeClip,
			Confidence:       0.9,
		}, models.EdgeOriginUser)

		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeMultipleParents))
	})

	t.Run("rejects a direct cycle", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "R", "D")
		addEdge(t, builder, "R", "D")

		_, err := builder.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
			SourceID:         "D",
			TargetID:         "R",
			RelationshipType: models.RelationshipTypeRepost,
			Confidence:       0.9,
		}, models.EdgeOriginUser)

		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeCycle))
	})

	t.Run("rejects a transitive cycle", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "A", "B", "C")
		addEdge(t, builder, "A", "B")
		addEdge(t, builder, "B", "C")

		_, err := builder.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
			SourceID:         "C",
			TargetID:         "A",
			RelationshipType: models.RelationshipTypeReference,
			Confidence:       0.7,
		}, models.EdgeOriginUser)

		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeCycle))
	})

	t.Run("rejects a self edge", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "A")

		_, err := builder.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
			SourceID:         "A",
			TargetID:         "A",
			RelationshipType: models.RelationshipTypeRepost,
			Confidence:       1,
		}, models.EdgeOriginUser)

		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeCycle))
	})

	t.Run("rejects unknown nodes", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "A")

		_, err := builder.AddEdge(context.Background(), "creator-1", models.AddEdgeRequest{
			SourceID:         "A",
			TargetID:         "missing",
			RelationshipType: models.RelationshipTypeClip,
			Confidence:       0.9,
		}, models.EdgeOriginUser)

		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeInvalidReference))
	})

	t.Run("rejects nodes of another creator", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "A", "B")

		_, err := builder.AddEdge(context.Background(), "creator-2", models.AddEdgeRequest{
			SourceID:         "A",
			TargetID:         "B",
			RelationshipType: models.RelationshipTypeClip,
			Confidence:       0.9,
		}, models.EdgeOriginUser)

		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeInvalidReference))
	})
}

func TestRemoveEdge(t *testing.T) {
	t.Run("detaches the subtree without cascading", func(t *testing.T) {
		builder, edges, _ := newTestBuilder(t, "R", "D", "E")
		addEdge(t, builder, "R", "D")
		addEdge(t, builder, "D", "E")

		err := builder.RemoveEdge(context.Background(), "creator-1", "R", "D")
		require.NoError(t, err)
		assert.Len(t, edges.edges, 1, "descendant edge must survive")

		// D is now the root of its own family containing E
		family, err := builder.GetFamily(context.Background(), "creator-1", "E")
		require.NoError(t, err)
		assert.Equal(t, "D", family.RootID)
		assert.Len(t, family.Nodes, 2)
	})

	t.Run("rejects a missing edge", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "R", "D")

		err := builder.RemoveEdge(context.Background(), "creator-1", "R", "D")
		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeInvalidReference))
	})
}

func TestGetFamily(t *testing.T) {
	t.Run("walks up to the root from any member", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "R", "A", "B", "C")
		addEdge(t, builder, "R", "A")
		addEdge(t, builder, "A", "B")
		addEdge(t, builder, "R", "C")

		family, err := builder.GetFamily(context.Background(), "creator-1", "B")
		require.NoError(t, err)

		assert.Equal(t, "R", family.RootID)
		assert.Len(t, family.Nodes, 4)
		assert.Len(t, family.Edges, 3)
		assert.Equal(t, 2, family.Depth)
	})

	t.Run("single node is its own family", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "R")

		family, err := builder.GetFamily(context.Background(), "creator-1", "R")
		require.NoError(t, err)
		assert.Equal(t, "R", family.RootID)
		assert.Len(t, family.Nodes, 1)
		assert.Empty(t, family.Edges)
	})

	t.Run("fails on a family deeper than the bound", func(t *testing.T) {
		ids := make([]string, 0, 13)
		for i := 0; i < 13; i++ {
			ids = append(ids, fmt.Sprintf("n%d", i))
		}
		builder, _, _ := newTestBuilder(t, ids...)
		for i := 0; i < 12; i++ {
			addEdge(t, builder, ids[i], ids[i+1])
		}

		_, err := builder.GetFamily(context.Background(), "creator-1", "n12")
		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeFamilyTooDeep))
	})

	t.Run("rejects an unknown node", func(t *testing.T) {
		builder, _, _ := newTestBuilder(t, "R")

		_, err := builder.GetFamily(context.Background(), "creator-1", "missing")
		require.Error(t, err)
		assert.True(t, HasCode(err, ErrCodeInvalidReference))
	})
}

func TestGetRelationships(t *testing.T) {
	builder, _, _ := newTestBuilder(t, "R", "A", "B")
	addEdge(t, builder, "R", "A")
	addEdge(t, builder, "A", "B")

	edges, err := builder.GetRelationships(context.Background(), "creator-1", "A")
	require.NoError(t, err)
	assert.Len(t, edges, 2, "parent edge plus child edge")
}
