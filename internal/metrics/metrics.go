package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_ingested_total",
		Help: "Total number of webhook events accepted at ingestion, labelled by provider.",
	}, []string{"provider"})

	EventsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate_total",
		Help: "Total number of webhook deliveries dropped as duplicates, labelled by provider.",
	}, []string{"provider"})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_processed_total",
		Help: "Total number of webhook events picked up by the retry processor.",
	})

	EventsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_succeeded_total",
		Help: "Total number of webhook events applied and completed.",
	})

	EventsRescheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_rescheduled_total",
		Help: "Total number of webhook events re-marked failed with a backoff delay.",
	})

	EventsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_dead_lettered_total",
		Help: "Total number of webhook events that exhausted their retry budget.",
	})

	EventsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_requeued_total",
		Help: "Total number of dead-lettered webhook events manually requeued.",
	})

	EventsReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_reclaimed_total",
		Help: "Total number of stale processing rows reset to failed.",
	})
)
