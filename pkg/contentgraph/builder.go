// Package contentgraph maintains the directed relationship graph between
// content nodes. The edge set per creator is a forest: every node has at most
// one parent, cycles are rejected, and traversal depth is bounded.
package contentgraph

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/metrics"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
	"github.com/bronxpinstripes/engagerr-analytics/pkg/tracing"
)

// NodeStore is the subset of the content node repository the builder needs
type NodeStore interface {
	Get(ctx context.Context, id string) (*models.ContentNode, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.ContentNode, error)
}

// EdgeStore persists relationship edges
type EdgeStore interface {
	ListByCreator(ctx context.Context, creatorID string) ([]models.RelationshipEdge, error)
	Create(ctx context.Context, edge *models.RelationshipEdge) error
	Update(ctx context.Context, edge *models.RelationshipEdge) error
	Delete(ctx context.Context, creatorID, sourceID, targetID string) error
}

// Locker serializes edge mutation per creator
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// VersionTracker bumps the creator's graph version on every mutation so
// cached rollups keyed by version go stale immediately
type VersionTracker interface {
	BumpGraphVersion(ctx context.Context, creatorID string) error
}

// Emitter publishes relationship lifecycle events. All emissions are
// best-effort from the builder's perspective.
type Emitter interface {
	EmitRelationshipCreated(ctx context.Context, edge *models.RelationshipEdge) error
	EmitRelationshipUpdated(ctx context.Context, edge *models.RelationshipEdge) error
	EmitRelationshipDeleted(ctx context.Context, edge *models.RelationshipEdge) error
}

// Projector mirrors edges into the exploration graph database
type Projector interface {
	ProjectEdge(ctx context.Context, edge *models.RelationshipEdge) error
	RemoveEdge(ctx context.Context, edge *models.RelationshipEdge) error
}

// Config tunes the builder
type Config struct {
	MaxFamilyDepth int
	LockTTL        time.Duration
}

// Builder validates and applies relationship edge mutations and resolves
// content families from the edge set.
type Builder struct {
	cfg       Config
	nodes     NodeStore
	edges     EdgeStore
	locker    Locker
	versions  VersionTracker
	emitter   Emitter
	projector Projector
	logger    ectologger.Logger
}

// NewBuilder creates a graph builder. Emitter and projector may be nil.
func NewBuilder(cfg Config, nodes NodeStore, edges EdgeStore, locker Locker, versions VersionTracker, emitter Emitter, projector Projector, logger ectologger.Logger) *Builder {
	if cfg.MaxFamilyDepth <= 0 {
		cfg.MaxFamilyDepth = 10
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Second
	}
	return &Builder{
		cfg:       cfg,
		nodes:     nodes,
		edges:     edges,
		locker:    locker,
		versions:  versions,
		emitter:   emitter,
		projector: projector,
		logger:    logger,
	}
}

// AddEdge validates and persists a parent -> derivative edge. Validation
// order: both nodes exist and belong to the creator, target has no other
// parent, the edge closes no cycle. Re-adding an identical edge is a no-op;
// same pair with a different type or confidence updates in place.
func (b *Builder) AddEdge(ctx context.Context, creatorID string, req models.AddEdgeRequest, createdBy models.EdgeOrigin) (*models.RelationshipEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "contentgraph.Builder.AddEdge")
	defer span.End()

	log := b.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id": creatorID,
		"source_id":  req.SourceID,
		"target_id":  req.TargetID,
	})

	source, target, err := b.resolvePair(ctx, creatorID, req.SourceID, req.TargetID)
	if err != nil {
		metrics.RecordEdgeMutation("add", "rejected")
		return nil, err
	}

	var result *models.RelationshipEdge
	err = b.locker.WithLock(ctx, "graph:"+creatorID, b.cfg.LockTTL, func() error {
		snapshot, err := b.loadSnapshot(ctx, creatorID)
		if err != nil {
			return err
		}

		if existing, ok := snapshot.ParentEdge(target.ID); ok {
			if existing.SourceID != source.ID {
				return NewMultipleParentsError(source.ID, target.ID)
			}
			if existing.RelationshipType == req.RelationshipType && existing.Confidence == req.Confidence {
				result = &existing
				return nil
			}
			existing.RelationshipType = req.RelationshipType
			existing.Confidence = req.Confidence
			existing.UpdatedAt = time.Now().UTC()
			if err := b.edges.Update(ctx, &existing); err != nil {
				return err
			}
			result = &existing
			return b.afterMutation(ctx, creatorID, &existing, "updated")
		}

		if source.ID == target.ID {
			return NewCycleError(source.ID, target.ID)
		}
		ancestors, err := snapshot.Ancestors(source.ID, b.cfg.MaxFamilyDepth)
		if err != nil {
			return err
		}
		for _, ancestorID := range ancestors {
			if ancestorID == target.ID {
				return NewCycleError(source.ID, target.ID)
			}
		}

		now := time.Now().UTC()
		edge := &models.RelationshipEdge{
			ID:               uuid.New().String(),
			CreatorID:        creatorID,
			SourceID:         source.ID,
			TargetID:         target.ID,
			RelationshipType: req.RelationshipType,
			Confidence:       req.Confidence,
			CreatedBy:        createdBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := b.edges.Create(ctx, edge); err != nil {
			return err
		}
		result = edge
		return b.afterMutation(ctx, creatorID, edge, "created")
	})
	if err != nil {
		log.WithError(err).Warn("Rejected edge mutation")
		metrics.RecordEdgeMutation("add", "rejected")
		return nil, err
	}

	metrics.RecordEdgeMutation("add", "ok")
	return result, nil
}

// RemoveEdge deletes the edge between source and target. The subtree rooted
// at target becomes its own family; descendants are not touched.
func (b *Builder) RemoveEdge(ctx context.Context, creatorID, sourceID, targetID string) error {
	ctx, span := tracing.StartSpan(ctx, "contentgraph.Builder.RemoveEdge")
	defer span.End()

	log := b.logger.WithContext(ctx).WithFields(map[string]any{
		"creator_id": creatorID,
		"source_id":  sourceID,
		"target_id":  targetID,
	})

	err := b.locker.WithLock(ctx, "graph:"+creatorID, b.cfg.LockTTL, func() error {
		snapshot, err := b.loadSnapshot(ctx, creatorID)
		if err != nil {
			return err
		}

		edge, ok := snapshot.ParentEdge(targetID)
		if !ok || edge.SourceID != sourceID {
			return NewInvalidReferenceError(sourceID, targetID, "edge does not exist")
		}

		if err := b.edges.Delete(ctx, creatorID, sourceID, targetID); err != nil {
			return err
		}

		if b.projector != nil {
			if perr := b.projector.RemoveEdge(ctx, &edge); perr != nil {
				log.WithError(perr).Warn("Failed to remove edge projection")
			}
		}
		if b.emitter != nil {
			if eerr := b.emitter.EmitRelationshipDeleted(ctx, &edge); eerr != nil {
				log.WithError(eerr).Warn("Failed to emit relationship.deleted event")
			}
		}
		return b.versions.BumpGraphVersion(ctx, creatorID)
	})
	if err != nil {
		metrics.RecordEdgeMutation("remove", "rejected")
		return err
	}

	metrics.RecordEdgeMutation("remove", "ok")
	return nil
}

// GetFamily resolves the full family containing the given node. Non-root ids
// are walked up to their root first, then the family is collected breadth
// first.
func (b *Builder) GetFamily(ctx context.Context, creatorID, contentID string) (*models.ContentFamily, error) {
	ctx, span := tracing.StartSpan(ctx, "contentgraph.Builder.GetFamily")
	defer span.End()

	snapshot, err := b.loadSnapshot(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	if _, ok := snapshot.Node(contentID); !ok {
		return nil, NewInvalidReferenceError(contentID, "", "content node does not exist")
	}

	rootID, err := snapshot.RootOf(contentID, b.cfg.MaxFamilyDepth)
	if err != nil {
		return nil, err
	}

	return snapshot.Family(rootID, b.cfg.MaxFamilyDepth)
}

// GetRelationships returns the edges touching a node (its parent edge plus
// its child edges)
func (b *Builder) GetRelationships(ctx context.Context, creatorID, contentID string) ([]models.RelationshipEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "contentgraph.Builder.GetRelationships")
	defer span.End()

	snapshot, err := b.loadSnapshot(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	if _, ok := snapshot.Node(contentID); !ok {
		return nil, NewInvalidReferenceError(contentID, "", "content node does not exist")
	}

	edges := make([]models.RelationshipEdge, 0, 4)
	if parent, ok := snapshot.ParentEdge(contentID); ok {
		edges = append(edges, parent)
	}
	edges = append(edges, snapshot.ChildEdges(contentID)...)
	return edges, nil
}

// LoadSnapshot exposes the creator's current graph snapshot for read-only
// consumers (rollup, suggestions)
func (b *Builder) LoadSnapshot(ctx context.Context, creatorID string) (*Snapshot, error) {
	return b.loadSnapshot(ctx, creatorID)
}

func (b *Builder) loadSnapshot(ctx context.Context, creatorID string) (*Snapshot, error) {
	nodes, err := b.nodes.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	edges, err := b.edges.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(nodes, edges), nil
}

func (b *Builder) resolvePair(ctx context.Context, creatorID, sourceID, targetID string) (*models.ContentNode, *models.ContentNode, error) {
	source, err := b.nodes.Get(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := b.nodes.Get(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	if source == nil || target == nil {
		return nil, nil, NewInvalidReferenceError(sourceID, targetID, "one or both content nodes do not exist")
	}
	if source.CreatorID != creatorID || target.CreatorID != creatorID {
		return nil, nil, NewInvalidReferenceError(sourceID, targetID, "content nodes do not belong to the creator")
	}
	return source, target, nil
}

func (b *Builder) afterMutation(ctx context.Context, creatorID string, edge *models.RelationshipEdge, action string) error {
	log := b.logger.WithContext(ctx).WithField("edge_id", edge.ID)

	if b.projector != nil {
		if err := b.projector.ProjectEdge(ctx, edge); err != nil {
			log.WithError(err).Warn("Failed to project edge to graph database")
		}
	}
	if b.emitter != nil {
		var err error
		switch action {
		case "created":
			err = b.emitter.EmitRelationshipCreated(ctx, edge)
		case "updated":
			err = b.emitter.EmitRelationshipUpdated(ctx, edge)
		}
		if err != nil {
			log.WithError(err).Warn("Failed to emit relationship event")
		}
	}

	return b.versions.BumpGraphVersion(ctx, creatorID)
}
