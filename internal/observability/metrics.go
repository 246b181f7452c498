// Package observability exposes Prometheus instrumentation for the bot's
// core pipelines and the OpenTelemetry tracing bootstrap.
//
// The counters here track the two stateful pipelines (range ingestion and
// gated delivery) plus the background cleanup scheduler, with bounded label
// cardinality: media kind for ingestion, a small result set for deliveries.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ItemsIngested counts content items extracted during range walks and
	// single-file stores, by media kind.
	ItemsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_items_ingested_total",
			Help: "Total number of content items persisted.",
		},
		[]string{"kind"},
	)

	// PositionsSkipped counts range-walk positions that were skipped
	// (missing message, copy failure, or no supported media).
	PositionsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filestore_positions_skipped_total",
			Help: "Total number of range positions skipped during ingestion.",
		},
	)

	// BatchesCreated counts persisted batches.
	BatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filestore_batches_created_total",
			Help: "Total number of batches persisted.",
		},
	)

	// Deliveries counts delivery attempts by result
	// (ok, not_found, send_failed).
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_deliveries_total",
			Help: "Total number of delivery attempts.",
		},
		[]string{"result"},
	)

	// MessagesDelivered counts individual messages transmitted to requesters.
	MessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filestore_messages_delivered_total",
			Help: "Total number of content messages transmitted.",
		},
	)

	// DeletionsScheduled counts messages handed to the cleanup scheduler.
	DeletionsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "filestore_deletions_scheduled_total",
			Help: "Total number of messages scheduled for deletion.",
		},
	)

	// DeletionsExecuted counts deletion attempts actually issued, by result
	// (ok, failed). Failures are expected and ignorable.
	DeletionsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_deletions_executed_total",
			Help: "Total number of deletion attempts issued.",
		},
		[]string{"result"},
	)

	// BroadcastMessages counts fan-out sends by result (ok, failed).
	BroadcastMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_broadcast_messages_total",
			Help: "Total number of broadcast forwards attempted.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		ItemsIngested,
		PositionsSkipped,
		BatchesCreated,
		Deliveries,
		MessagesDelivered,
		DeletionsScheduled,
		DeletionsExecuted,
		BroadcastMessages,
	)
}
