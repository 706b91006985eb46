package models

import (
	"time"
)

// ContentNode is the canonical record of a single content item on a single
// platform. Identity fields (creator, platform, external id) are immutable
// once created; only presentation metadata may change.
type ContentNode struct {
	ID          string     `json:"id" db:"id"`
	CreatorID   string     `json:"creator_id" db:"creator_id"`
	Platform    string     `json:"platform" db:"platform"`
	ExternalID  string     `json:"external_id" db:"external_id"`
	ContentType string     `json:"content_type" db:"content_type"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	URL         string     `json:"url,omitempty" db:"url"`
	PublishedAt time.Time  `json:"published_at" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateContentNodeRequest is the request body for creating a content node
type CreateContentNodeRequest struct {
	Platform    string    `json:"platform" validate:"required"`
	ExternalID  string    `json:"external_id" validate:"required"`
	ContentType string    `json:"content_type" validate:"required"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at" validate:"required"`
}

// UpdateContentNodeRequest is the request body for updating mutable metadata
type UpdateContentNodeRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	URL         *string `json:"url,omitempty"`
}

// ContentNodeListResponse is the API response for listing content nodes
type ContentNodeListResponse struct {
	Items      []ContentNode `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}
