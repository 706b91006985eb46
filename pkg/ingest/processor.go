// Package ingest handles incoming platform sync messages. This is the write
// path for content nodes and daily metrics; graph mutation and rollups react
// to what lands here.
package ingest

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/contentgraph"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/kafka"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/metrics"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// NodeWriter is the subset of the content node repository ingestion needs
type NodeWriter interface {
	Create(ctx context.Context, creatorID string, req models.CreateContentNodeRequest) (*models.ContentNode, error)
	GetByExternalID(ctx context.Context, creatorID, platform, externalID string) (*models.ContentNode, error)
}

// MetricWriter upserts raw daily metric rows
type MetricWriter interface {
	Upsert(ctx context.Context, contentID string, req models.UpsertDailyMetricRequest) (*models.DailyMetric, error)
}

// NodeReader resolves a content ID back to its owning creator
type NodeReader interface {
	Get(ctx context.Context, id string) (*models.ContentNode, error)
}

// VersionBumper invalidates cached rollups after a metrics write
type VersionBumper interface {
	BumpMetricsVersion(ctx context.Context, creatorID string) error
}

// ContentEmitter publishes content lifecycle events. Best-effort.
type ContentEmitter interface {
	EmitContentCreated(ctx context.Context, node *models.ContentNode) error
}

// NodeProjector mirrors registered nodes into the exploration graph.
// Best-effort; edge projection re-merges endpoints on its own.
type NodeProjector interface {
	ProjectNode(ctx context.Context, node *models.ContentNode) error
}

// Processor dispatches platform sync messages to the content and metric
// write paths. Handlers are idempotent so redelivery is safe.
type Processor struct {
	logger      ectologger.Logger
	nodes       NodeWriter
	nodeReader  NodeReader
	metricStore MetricWriter
	versions    VersionBumper
	emitter     ContentEmitter
	projector   NodeProjector
}

// NewProcessor creates a sync message processor. Emitter and projector may
// be nil.
func NewProcessor(
	logger ectologger.Logger,
	nodes NodeWriter,
	nodeReader NodeReader,
	metricStore MetricWriter,
	versions VersionBumper,
	emitter ContentEmitter,
	projector NodeProjector,
) *Processor {
	return &Processor{
		logger:      logger,
		nodes:       nodes,
		nodeReader:  nodeReader,
		metricStore: metricStore,
		versions:    versions,
		emitter:     emitter,
		projector:   projector,
	}
}

// HandleMessage is the kafka.MessageHandler entry point. Returning an error
// leaves the message uncommitted for redelivery; nil commits it.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.Processor.HandleMessage")
	defer span.End()

	sync := msg.Sync
	if sync == nil {
		// Consumer parses before dispatch; a nil payload here is a bug.
		p.logger.WithContext(ctx).Error("Sync message reached handler unparsed, skipping")
		metrics.RecordSyncMessage("unknown", "malformed")
		return nil
	}

	switch sync.Kind {
	case models.SyncKindContent:
		err := p.handleContentSynced(ctx, sync)
		if err != nil {
			metrics.RecordSyncMessage(sync.Kind, "error")
			return err
		}
		metrics.RecordSyncMessage(sync.Kind, "ok")
		return nil

	case models.SyncKindMetrics:
		err := p.handleDailyMetrics(ctx, sync)
		if err != nil {
			metrics.RecordSyncMessage(sync.Kind, "error")
			return err
		}
		metrics.RecordSyncMessage(sync.Kind, "ok")
		return nil

	default:
		// Unknown kinds are skipped, not retried: a new producer version
		// may emit kinds this consumer predates.
		p.logger.WithContext(ctx).WithField("kind", sync.Kind).Warn("Unknown sync message kind, skipping")
		metrics.RecordSyncMessage(sync.Kind, "skipped")
		return nil
	}
}

// handleContentSynced registers a synced content item. A replay of an
// already-registered item is a no-op.
func (p *Processor) handleContentSynced(ctx context.Context, sync *models.SyncMessage) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.Processor.handleContentSynced")
	defer span.End()

	payload := sync.Content
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id":  sync.CreatorID,
		"platform":    payload.Platform,
		"external_id": payload.ExternalID,
	})

	existing, err := p.nodes.GetByExternalID(ctx, sync.CreatorID, payload.Platform, payload.ExternalID)
	if err != nil {
		return fmt.Errorf("failed to check for existing content node: %w", err)
	}
	if existing != nil {
		log.Debug("Content node already registered, skipping")
		return nil
	}

	node, err := p.nodes.Create(ctx, sync.CreatorID, models.CreateContentNodeRequest{
		Platform:    payload.Platform,
		ExternalID:  payload.ExternalID,
		ContentType: payload.ContentType,
		Title:       payload.Title,
		URL:         payload.URL,
		PublishedAt: payload.PublishedAt,
	})
	if err != nil {
		if contentgraph.HasCode(err, contentgraph.ErrCodeDuplicateContent) {
			// Another writer won the race, or a row invisible to the lookup
			// still holds the (platform, external_id) slot. Retrying can
			// never succeed, so the message is committed.
			log.Warn("Content sync collides with an existing registration, skipping")
			return nil
		}
		return fmt.Errorf("failed to create content node from sync: %w", err)
	}

	log.WithField("content_id", node.ID).Info("Registered synced content node")

	if p.emitter != nil {
		if err := p.emitter.EmitContentCreated(ctx, node); err != nil {
			log.WithError(err).Warn("Failed to emit content.created event")
		}
	}

	if p.projector != nil {
		if err := p.projector.ProjectNode(ctx, node); err != nil {
			log.WithError(err).Warn("Failed to mirror content node into graph")
		}
	}

	return nil
}

// handleDailyMetrics upserts one day of raw metrics and bumps the creator's
// metrics version so cached rollups go stale
func (p *Processor) handleDailyMetrics(ctx context.Context, sync *models.SyncMessage) error {
	ctx, span := tracing.StartSpan(ctx, "ingest.Processor.handleDailyMetrics")
	defer span.End()

	payload := sync.Metrics
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"content_id": payload.ContentID,
		"date":       payload.Date.Format("2006-01-02"),
	})

	node, err := p.nodeReader.Get(ctx, payload.ContentID)
	if err != nil {
		return fmt.Errorf("failed to resolve content node for metrics: %w", err)
	}
	if node == nil {
		// Metrics for unknown content can happen when the content sync is
		// still in flight. Retry via redelivery.
		log.Warn("Metrics for unknown content node, leaving for retry")
		return fmt.Errorf("content node %s not found", payload.ContentID)
	}

	if _, err := p.metricStore.Upsert(ctx, payload.ContentID, models.UpsertDailyMetricRequest{
		Date: payload.Date,
		Raw:  payload.Raw,
	}); err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}

	if err := p.versions.BumpMetricsVersion(ctx, node.CreatorID); err != nil {
		log.WithError(err).Warn("Failed to bump metrics version, cached rollups may serve stale data until TTL")
	}

	log.Debug("Upserted daily metric from sync")
	return nil
}
