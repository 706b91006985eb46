// Package kafka handles consumption of platform sync events and emission of
// analytics events.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed metadata
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Sync holds the decoded payload after ParseSyncMessage
	Sync *models.SyncMessage
}

// ParseSyncMessage decodes the value as a platform sync envelope. Decoding
// failure or a kind/payload mismatch is a malformed message; the consumer
// logs and commits it rather than retrying forever.
func (m *IncomingMessage) ParseSyncMessage() error {
	var sync models.SyncMessage
	if err := json.Unmarshal(m.Value, &sync); err != nil {
		return fmt.Errorf("failed to decode sync message: %w", err)
	}
	if !sync.IsValid() {
		return fmt.Errorf("sync message kind %q is missing its payload", sync.Kind)
	}

	m.Sync = &sync
	return nil
}

// CreatorID returns the creator the message belongs to, preferring the
// payload over the header
func (m *IncomingMessage) CreatorID() string {
	if m.Sync != nil && m.Sync.CreatorID != "" {
		return m.Sync.CreatorID
	}
	return m.Headers["creator_id"]
}
