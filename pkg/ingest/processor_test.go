package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/kafka"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

func newTestLogger(t *testing.T) ectologger.Logger {
	t.Helper()
	zl, err := zap.NewDevelopment()
	require.NoError(t, err)
	return zapadapter.NewZapEctoLogger(zl, nil)
}

type memNodeStore struct {
	nodes     map[string]*models.ContentNode
	creates   int
	createErr error
}

func newMemNodeStore() *memNodeStore {
	return &memNodeStore{nodes: make(map[string]*models.ContentNode)}
}

func (s *memNodeStore) Create(_ context.Context, creatorID string, req models.CreateContentNodeRequest) (*models.ContentNode, error) {
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	node := &models.ContentNode{
		ID:          uuid.New().String(),
		CreatorID:   creatorID,
		Platform:    req.Platform,
		ExternalID:  req.ExternalID,
		ContentType: req.ContentType,
		Title:       req.Title,
		URL:         req.URL,
		PublishedAt: req.PublishedAt,
	}
	s.nodes[node.ID] = node
	return node, nil
}

func (s *memNodeStore) GetByExternalID(_ context.Context, creatorID, platform, externalID string) (*models.ContentNode, error) {
	for _, node := range s.nodes {
		if node.CreatorID == creatorID && node.Platform == platform && node.ExternalID == externalID {
			return node, nil
		}
	}
	return nil, nil
}

func (s *memNodeStore) Get(_ context.Context, id string) (*models.ContentNode, error) {
	return s.nodes[id], nil
}

type memMetricStore struct {
	upserts map[string][]models.UpsertDailyMetricRequest
	err     error
}

func newMemMetricStore() *memMetricStore {
	return &memMetricStore{upserts: make(map[string][]models.UpsertDailyMetricRequest)}
}

func (s *memMetricStore) Upsert(_ context.Context, contentID string, req models.UpsertDailyMetricRequest) (*models.DailyMetric, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.upserts[contentID] = append(s.upserts[contentID], req)
	return &models.DailyMetric{ContentID: contentID, Date: req.Date}, nil
}

type stubVersions struct {
	bumps map[string]int
}

func (s *stubVersions) BumpMetricsVersion(_ context.Context, creatorID string) error {
	if s.bumps == nil {
		s.bumps = make(map[string]int)
	}
	s.bumps[creatorID]++
	return nil
}

type stubEmitter struct {
	created []string
	err     error
}

func (s *stubEmitter) EmitContentCreated(_ context.Context, node *models.ContentNode) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, node.ID)
	return nil
}

type stubProjector struct {
	projected []string
	err       error
}

func (s *stubProjector) ProjectNode(_ context.Context, node *models.ContentNode) error {
	if s.err != nil {
		return s.err
	}
	s.projected = append(s.projected, node.ID)
	return nil
}

func contentMessage(creatorID, platform, externalID string) *kafka.IncomingMessage {
	return &kafka.IncomingMessage{
		Sync: &models.SyncMessage{
			Kind:      models.SyncKindContent,
			CreatorID: creatorID,
			Content: &models.ContentPayload{
				Platform:    platform,
				ExternalID:  externalID,
				ContentType: "video",
				Title:       "Launch Recap",
				PublishedAt: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
}

func metricsMessage(contentID string, date time.Time) *kafka.IncomingMessage {
	return &kafka.IncomingMessage{
		Sync: &models.SyncMessage{
			Kind: models.SyncKindMetrics,
			Metrics: &models.MetricsPayload{
				ContentID: contentID,
				Date:      date,
				Raw:       map[string]float64{"impressions": 1000, "reactions": 50},
			},
		},
	}
}

func TestProcessor_ContentSynced(t *testing.T) {
	t.Run("registers a new content node and emits an event", func(t *testing.T) {
		nodes := newMemNodeStore()
		emitter := &stubEmitter{}
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, emitter, nil)

		err := p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1"))

		require.NoError(t, err)
		assert.Equal(t, 1, nodes.creates)
		assert.Len(t, emitter.created, 1)
	})

	t.Run("replay of an already registered item is a no-op", func(t *testing.T) {
		nodes := newMemNodeStore()
		emitter := &stubEmitter{}
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, emitter, nil)

		require.NoError(t, p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1")))
		require.NoError(t, p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1")))

		assert.Equal(t, 1, nodes.creates)
		assert.Len(t, emitter.created, 1)
	})

	t.Run("mirrors the new node into the graph", func(t *testing.T) {
		nodes := newMemNodeStore()
		projector := &stubProjector{}
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, nil, projector)

		err := p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1"))

		require.NoError(t, err)
		assert.Len(t, projector.projected, 1)
	})

	t.Run("projection failure does not fail the message", func(t *testing.T) {
		nodes := newMemNodeStore()
		projector := &stubProjector{err: errors.New("graph down")}
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, nil, projector)

		err := p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1"))

		require.NoError(t, err)
		assert.Equal(t, 1, nodes.creates)
	})

	t.Run("duplicate on create commits instead of retrying", func(t *testing.T) {
		// The lookup can miss a row that still holds the unique slot, so the
		// insert itself reports the duplicate. Redelivery would hit the same
		// conflict forever.
		nodes := newMemNodeStore()
		nodes.createErr = contentgraph.NewDuplicateContentError("platform-a", "ext-1")
		emitter := &stubEmitter{}
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, emitter, nil)

		for i := 0; i < 3; i++ {
			err := p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1"))
			require.NoError(t, err)
		}

		assert.Empty(t, emitter.created)
	})

	t.Run("create failure propagates for redelivery", func(t *testing.T) {
		nodes := newMemNodeStore()
		nodes.createErr = errors.New("db down")
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, nil, nil)

		err := p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1"))

		require.Error(t, err)
	})

	t.Run("emit failure does not fail the message", func(t *testing.T) {
		nodes := newMemNodeStore()
		emitter := &stubEmitter{err: errors.New("broker down")}
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, emitter, nil)

		err := p.HandleMessage(context.Background(), contentMessage("creator-1", "platform-a", "ext-1"))

		require.NoError(t, err)
		assert.Equal(t, 1, nodes.creates)
	})
}

func TestProcessor_DailyMetrics(t *testing.T) {
	day := time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)

	t.Run("upserts the row and bumps the metrics version", func(t *testing.T) {
		nodes := newMemNodeStore()
		metricStore := newMemMetricStore()
		versions := &stubVersions{}
		p := NewProcessor(newTestLogger(t), nodes, nodes, metricStore, versions, nil, nil)

		node, err := nodes.Create(context.Background(), "creator-1", models.CreateContentNodeRequest{
			Platform: "platform-a", ExternalID: "ext-1", ContentType: "video", PublishedAt: day,
		})
		require.NoError(t, err)

		err = p.HandleMessage(context.Background(), metricsMessage(node.ID, day))

		require.NoError(t, err)
		assert.Len(t, metricStore.upserts[node.ID], 1)
		assert.Equal(t, 1, versions.bumps["creator-1"])
	})

	t.Run("metrics for unknown content are left for retry", func(t *testing.T) {
		nodes := newMemNodeStore()
		metricStore := newMemMetricStore()
		p := NewProcessor(newTestLogger(t), nodes, nodes, metricStore, &stubVersions{}, nil, nil)

		err := p.HandleMessage(context.Background(), metricsMessage("missing-id", day))

		require.Error(t, err)
		assert.Empty(t, metricStore.upserts)
	})

	t.Run("upsert failure propagates for redelivery", func(t *testing.T) {
		nodes := newMemNodeStore()
		metricStore := newMemMetricStore()
		metricStore.err = errors.New("db down")
		versions := &stubVersions{}
		p := NewProcessor(newTestLogger(t), nodes, nodes, metricStore, versions, nil, nil)

		node, err := nodes.Create(context.Background(), "creator-1", models.CreateContentNodeRequest{
			Platform: "platform-a", ExternalID: "ext-1", ContentType: "video", PublishedAt: day,
		})
		require.NoError(t, err)

		err = p.HandleMessage(context.Background(), metricsMessage(node.ID, day))

		require.Error(t, err)
		assert.Zero(t, versions.bumps["creator-1"])
	})
}

func TestProcessor_Dispatch(t *testing.T) {
	t.Run("unknown kind commits without processing", func(t *testing.T) {
		nodes := newMemNodeStore()
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, nil, nil)

		err := p.HandleMessage(context.Background(), &kafka.IncomingMessage{
			Sync: &models.SyncMessage{Kind: "audience.updated", CreatorID: "creator-1"},
		})

		require.NoError(t, err)
		assert.Zero(t, nodes.creates)
	})

	t.Run("unparsed message commits without processing", func(t *testing.T) {
		nodes := newMemNodeStore()
		p := NewProcessor(newTestLogger(t), nodes, nodes, newMemMetricStore(), &stubVersions{}, nil, nil)

		err := p.HandleMessage(context.Background(), &kafka.IncomingMessage{})

		require.NoError(t, err)
		assert.Zero(t, nodes.creates)
	})
}
