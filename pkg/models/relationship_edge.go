package models

import "time"

// RelationshipType enumerates how a derivative relates to its parent
type RelationshipType string

const (
	RelationshipTypeRepost     RelationshipType = "repost"
	RelationshipTypeClip       RelationshipType = "clip"
	RelationshipTypeAdaptation RelationshipType = "adaptation"
	RelationshipTypeReference  RelationshipType = "reference"
)

// IsValid returns true for a known relationship type
func (t RelationshipType) IsValid() bool {
	switch t {
	case RelationshipTypeRepost, RelationshipTypeClip, RelationshipTypeAdaptation, RelationshipTypeReference:
		return true
	}
	return false
}

// EdgeOrigin records who created an edge
type EdgeOrigin string

const (
	EdgeOriginUser   EdgeOrigin = "user"
	EdgeOriginSystem EdgeOrigin = "system"
)

// RelationshipEdge is a directed parent -> derivative link between two content
// nodes owned by the same creator. The edge set per creator forms a forest:
// no cycles and at most one parent per node. Re-adding an existing pair with
// a different type or confidence updates the edge in place.
type RelationshipEdge struct {
	ID               string           `json:"id" db:"id"`
	CreatorID        string           `json:"creator_id" db:"creator_id"`
	SourceID         string           `json:"source_id" db:"source_id"`
	TargetID         string           `json:"target_id" db:"target_id"`
	RelationshipType RelationshipType `json:"relationship_type" db:"relationship_type"`
	Confidence       float64          `json:"confidence" db:"confidence"`
	CreatedBy        EdgeOrigin       `json:"created_by" db:"created_by"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// AddEdgeRequest is the request body for creating a relationship edge
type AddEdgeRequest struct {
	SourceID         string           `json:"source_id" validate:"required"`
	TargetID         string           `json:"target_id" validate:"required"`
	RelationshipType RelationshipType `json:"relationship_type" validate:"required,oneof=repost clip adaptation reference"`
	Confidence       float64          `json:"confidence" validate:"gte=0,lte=1"`
}

// ContentFamily is the computed node/edge set reachable from a root. Derived
// at query time from the edge set, never stored.
type ContentFamily struct {
	RootID string             `json:"root_id"`
	Nodes  []ContentNode      `json:"nodes"`
	Edges  []RelationshipEdge `json:"edges"`
	Depth  int                `json:"depth"`
}
