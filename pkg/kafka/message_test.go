package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

func TestIncomingMessage_ParseSyncMessage(t *testing.T) {
	t.Run("parses a content sync envelope", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"kind": "content.synced",
			"creator_id": "creator-1",
			"content": {
				"platform": "platform-a",
				"external_id": "ext-1",
				"content_type": "video",
				"title": "Launch Recap",
				"published_at": "2025-08-01T12:00:00Z"
			}
		}`)}

		require.NoError(t, msg.ParseSyncMessage())
		require.NotNil(t, msg.Sync)
		assert.Equal(t, models.SyncKindContent, msg.Sync.Kind)
		assert.Equal(t, "creator-1", msg.CreatorID())
		assert.Equal(t, "ext-1", msg.Sync.Content.ExternalID)
	})

	t.Run("parses a daily metrics envelope", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{
			"kind": "metrics.daily",
			"creator_id": "creator-1",
			"metrics": {
				"content_id": "content-1",
				"date": "2025-08-05T00:00:00Z",
				"raw": {"impressions": 1000, "reactions": 50}
			}
		}`)}

		require.NoError(t, msg.ParseSyncMessage())
		require.NotNil(t, msg.Sync.Metrics)
		assert.Equal(t, 1000.0, msg.Sync.Metrics.Raw["impressions"])
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{not json`)}
		assert.Error(t, msg.ParseSyncMessage())
	})

	t.Run("rejects a kind without its payload", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"kind": "content.synced", "creator_id": "creator-1"}`)}
		assert.Error(t, msg.ParseSyncMessage())
	})

	t.Run("falls back to the header for creator id", func(t *testing.T) {
		msg := &IncomingMessage{Headers: map[string]string{"creator_id": "creator-9"}}
		assert.Equal(t, "creator-9", msg.CreatorID())
	})
}
