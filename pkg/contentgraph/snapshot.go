package contentgraph

import (
	"sort"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

// Snapshot is an immutable in-memory view of one creator's nodes and edges.
// Nodes live in an arena keyed by id; edges are held as two index maps
// (child -> parent edge, parent -> child edges) so traversal never chases
// pointers and a snapshot taken at the start of a walk cannot be torn by a
// concurrent mutation.
type Snapshot struct {
	nodes    map[string]models.ContentNode
	parentOf map[string]models.RelationshipEdge
	children map[string][]models.RelationshipEdge
}

// NewSnapshot indexes the given node and edge sets. Edges referencing
// unknown nodes are kept; validation is the builder's job, not the
// snapshot's.
func NewSnapshot(nodes []models.ContentNode, edges []models.RelationshipEdge) *Snapshot {
	s := &Snapshot{
		nodes:    make(map[string]models.ContentNode, len(nodes)),
		parentOf: make(map[string]models.RelationshipEdge, len(edges)),
		children: make(map[string][]models.RelationshipEdge),
	}
	for _, n := range nodes {
		s.nodes[n.ID] = n
	}
	for _, e := range edges {
		s.parentOf[e.TargetID] = e
		s.children[e.SourceID] = append(s.children[e.SourceID], e)
	}
	return s
}

// Node returns the node with the given id, if present
func (s *Snapshot) Node(id string) (models.ContentNode, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// NodeIDs returns all node ids in the snapshot in stable order
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParentEdge returns the edge pointing at the given node, if any
func (s *Snapshot) ParentEdge(id string) (models.RelationshipEdge, bool) {
	e, ok := s.parentOf[id]
	return e, ok
}

// ChildEdges returns the outgoing edges of the given node
func (s *Snapshot) ChildEdges(id string) []models.RelationshipEdge {
	return s.children[id]
}

// IsRoot reports whether the node has no parent
func (s *Snapshot) IsRoot(id string) bool {
	_, ok := s.parentOf[id]
	return !ok
}

// RootOf walks up from the given node to its root. The walk is bounded by
// maxDepth; exceeding the bound returns a FamilyTooDeepError. Because every
// node has at most one parent this is O(depth).
func (s *Snapshot) RootOf(id string, maxDepth int) (string, error) {
	current := id
	for depth := 0; ; depth++ {
		if depth > maxDepth {
			return "", NewFamilyTooDeepError(id, maxDepth)
		}
		edge, ok := s.parentOf[current]
		if !ok {
			return current, nil
		}
		current = edge.SourceID
	}
}

// Ancestors returns the chain of ancestor ids of the given node, nearest
// first, bounded by maxDepth.
func (s *Snapshot) Ancestors(id string, maxDepth int) ([]string, error) {
	ancestors := make([]string, 0, 4)
	current := id
	for depth := 0; ; depth++ {
		if depth > maxDepth {
			return nil, NewFamilyTooDeepError(id, maxDepth)
		}
		edge, ok := s.parentOf[current]
		if !ok {
			return ancestors, nil
		}
		ancestors = append(ancestors, edge.SourceID)
		current = edge.SourceID
	}
}

// Family runs a breadth-first traversal from the given root and returns the
// reachable node/edge set. Depth beyond maxDepth fails with
// FamilyTooDeepError rather than silently truncating.
func (s *Snapshot) Family(rootID string, maxDepth int) (*models.ContentFamily, error) {
	family := &models.ContentFamily{
		RootID: rootID,
		Nodes:  make([]models.ContentNode, 0, 8),
		Edges:  make([]models.RelationshipEdge, 0, 8),
	}

	type queued struct {
		id    string
		depth int
	}

	visited := map[string]bool{rootID: true}
	queue := []queued{{id: rootID, depth: 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth > maxDepth {
			return nil, NewFamilyTooDeepError(rootID, maxDepth)
		}
		if item.depth > family.Depth {
			family.Depth = item.depth
		}

		if node, ok := s.nodes[item.id]; ok {
			family.Nodes = append(family.Nodes, node)
		}

		for _, edge := range s.children[item.id] {
			family.Edges = append(family.Edges, edge)
			if !visited[edge.TargetID] {
				visited[edge.TargetID] = true
				queue = append(queue, queued{id: edge.TargetID, depth: item.depth + 1})
			}
		}
	}

	return family, nil
}

// Linked reports whether the two nodes are already joined by an edge in
// either direction
func (s *Snapshot) Linked(a, b string) bool {
	if e, ok := s.parentOf[a]; ok && e.SourceID == b {
		return true
	}
	if e, ok := s.parentOf[b]; ok && e.SourceID == a {
		return true
	}
	return false
}
