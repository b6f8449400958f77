package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики ядра; отдаются через /metrics (promhttp).
var (
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_ingested_total",
		Help: "Successfully committed message submissions.",
	})
	DuplicateSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_duplicate_submissions_total",
		Help: "Submissions resolved to a previously committed idempotency key.",
	})
	StorageFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_storage_failures_total",
		Help: "Failed commits surfaced to submitters.",
	})
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_events_published_total",
		Help: "Committed events handed to the broadcast bus.",
	})
	MessagesReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_replayed_total",
		Help: "Messages streamed to reconnecting clients from the log.",
	})
	RelayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_relay_failures_total",
		Help: "Cross-process relay publish failures (degraded to local-only).",
	})
)
