package models

import "time"

// Sync message kinds emitted by the platform connector
const (
	SyncKindContent = "content.synced"
	SyncKindMetrics = "metrics.daily"
)

// SyncMessage is the envelope the platform connector publishes on the sync
// topic. Exactly one of Content or Metrics is set, selected by Kind.
type SyncMessage struct {
	Kind      string          `json:"kind"`
	CreatorID string          `json:"creator_id"`
	Content   *ContentPayload `json:"content,omitempty"`
	Metrics   *MetricsPayload `json:"metrics,omitempty"`
}

// ContentPayload carries a newly synced content item
type ContentPayload struct {
	Platform    string    `json:"platform"`
	ExternalID  string    `json:"external_id"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// MetricsPayload carries one day of raw metrics for a content item
type MetricsPayload struct {
	ContentID string             `json:"content_id"`
	Date      time.Time          `json:"date"`
	Raw       map[string]float64 `json:"raw"`
}

// IsValid reports whether the message carries the payload its kind requires
func (m *SyncMessage) IsValid() bool {
	switch m.Kind {
	case SyncKindContent:
		return m.CreatorID != "" && m.Content != nil && m.Content.Platform != "" && m.Content.ExternalID != ""
	case SyncKindMetrics:
		return m.Metrics != nil && m.Metrics.ContentID != "" && !m.Metrics.Date.IsZero()
	}
	return false
}
