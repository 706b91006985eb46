// Package metrics provides Prometheus metrics for the analytics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EdgeMutationsTotal tracks relationship edge mutations by operation and outcome
	EdgeMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "graph",
			Name:      "edge_mutations_total",
			Help:      "Total number of relationship edge mutations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// FamilyRollupsTotal tracks family metric computations
	FamilyRollupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "rollup",
			Name:      "computations_total",
			Help:      "Total number of family rollup computations by status",
		},
		[]string{"status"},
	)

	// FamilyRollupDuration tracks rollup computation duration in seconds
	FamilyRollupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "engagerr",
			Subsystem: "rollup",
			Name:      "computation_duration_seconds",
			Help:      "Duration of family rollup computations in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// RollupCacheTotal tracks rollup cache lookups
	RollupCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "rollup",
			Name:      "cache_total",
			Help:      "Total number of rollup cache lookups by result",
		},
		[]string{"result"},
	)

	// SuggestionsScored tracks candidate pairs scored by the suggestion engine
	SuggestionsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "suggestion",
			Name:      "candidates_scored_total",
			Help:      "Total number of candidate pairs scored by outcome",
		},
		[]string{"outcome"},
	)

	// SyncMessagesTotal tracks sync messages consumed from Kafka
	SyncMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "ingest",
			Name:      "sync_messages_total",
			Help:      "Total number of sync messages consumed by kind and status",
		},
		[]string{"kind", "status"},
	)

	// MetricRowsStandardized tracks metric rows run through standardization
	MetricRowsStandardized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "standardize",
			Name:      "rows_total",
			Help:      "Total number of metric rows standardized by status",
		},
		[]string{"platform", "status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "engagerr",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "engagerr",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "engagerr",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RecordEdgeMutation records a relationship edge mutation
func RecordEdgeMutation(operation, status string) {
	EdgeMutationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordFamilyRollup records a family rollup computation
func RecordFamilyRollup(status string, durationSeconds float64) {
	FamilyRollupsTotal.WithLabelValues(status).Inc()
	FamilyRollupDuration.Observe(durationSeconds)
}

// RecordRollupCache records a rollup cache lookup result
func RecordRollupCache(result string) {
	RollupCacheTotal.WithLabelValues(result).Inc()
}

// RecordSuggestionOutcome records a scored suggestion candidate
func RecordSuggestionOutcome(outcome string) {
	SuggestionsScored.WithLabelValues(outcome).Inc()
}

// RecordSyncMessage records a consumed sync message
func RecordSyncMessage(kind, status string) {
	SyncMessagesTotal.WithLabelValues(kind, status).Inc()
}

// RecordStandardization records a standardized metric row
func RecordStandardization(platform, status string) {
	MetricRowsStandardized.WithLabelValues(platform, status).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}
