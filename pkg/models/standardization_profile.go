package models

import (
	"time"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/database"
)

// StandardizationProfile holds the per-platform coefficients that map raw
// platform metrics onto canonical units. MetricMappings maps platform-native
// field names (e.g. "impressions") to canonical field names (e.g. "views").
// Profiles are data, not code; unregistered platforms fail closed.
type StandardizationProfile struct {
	ID                       string                            `json:"id" db:"id"`
	Platform                 string                            `json:"platform" db:"platform"`
	EngagementWeight         float64                           `json:"engagement_weight" db:"engagement_weight"`
	ViewWeight               float64                           `json:"view_weight" db:"view_weight"`
	ShareWeight              float64                           `json:"share_weight" db:"share_weight"`
	CommentWeight            float64                           `json:"comment_weight" db:"comment_weight"`
	LikeWeight               float64                           `json:"like_weight" db:"like_weight"`
	PlatformEngagementFactor float64                           `json:"platform_engagement_factor" db:"platform_engagement_factor"`
	PlatformValueFactor      float64                           `json:"platform_value_factor" db:"platform_value_factor"`
	MetricMappings           database.JSONB[map[string]string] `json:"metric_mappings" db:"metric_mappings"`
	CreatedAt                time.Time                         `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time                         `json:"updated_at" db:"updated_at"`
}

// CreateStandardizationProfileRequest is the request body for registering a platform profile
type CreateStandardizationProfileRequest struct {
	Platform                 string            `json:"platform" validate:"required"`
	EngagementWeight         float64           `json:"engagement_weight" validate:"gte=0"`
	ViewWeight               float64           `json:"view_weight" validate:"gte=0"`
	ShareWeight              float64           `json:"share_weight" validate:"gte=0"`
	CommentWeight            float64           `json:"comment_weight" validate:"gte=0"`
	LikeWeight               float64           `json:"like_weight" validate:"gte=0"`
	PlatformEngagementFactor float64           `json:"platform_engagement_factor" validate:"gt=0"`
	PlatformValueFactor      float64           `json:"platform_value_factor" validate:"gte=0"`
	MetricMappings           map[string]string `json:"metric_mappings"`
}

// UpdateStandardizationProfileRequest is the request body for updating a platform profile
type UpdateStandardizationProfileRequest struct {
	EngagementWeight         *float64          `json:"engagement_weight,omitempty"`
	ViewWeight               *float64          `json:"view_weight,omitempty"`
	ShareWeight              *float64          `json:"share_weight,omitempty"`
	CommentWeight            *float64          `json:"comment_weight,omitempty"`
	LikeWeight               *float64          `json:"like_weight,omitempty"`
	PlatformEngagementFactor *float64          `json:"platform_engagement_factor,omitempty"`
	PlatformValueFactor      *float64          `json:"platform_value_factor,omitempty"`
	MetricMappings           map[string]string `json:"metric_mappings,omitempty"`
}
