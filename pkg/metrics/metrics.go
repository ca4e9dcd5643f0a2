package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PushesReceived counts inbound push payloads by channel (foreground|background).
	PushesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushbell_pushes_received_total",
			Help: "Total number of push payloads received",
		},
		[]string{"channel"},
	)

	// RecordsCreated counts notification records created by semantic type.
	RecordsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushbell_records_created_total",
			Help: "Total number of notification records created",
		},
		[]string{"type"},
	)

	// TokenRegistrations records delivery-token registration outcomes
	// (registered|denied|association_failed|skipped).
	TokenRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushbell_token_registrations_total",
			Help: "Total number of delivery token registration attempts",
		},
		[]string{"result"},
	)

	// StoreLoadFallbacks counts loads that fell back to an empty collection.
	StoreLoadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushbell_store_load_fallbacks_total",
			Help: "Number of notification store loads that fell back to an empty collection",
		},
	)

	// PersistFailures counts failed writes of a notification collection.
	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pushbell_persist_failures_total",
			Help: "Number of failed notification collection writes",
		},
	)

	// BackgroundPresentations counts OS notification presentations by result (ok|error).
	BackgroundPresentations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushbell_background_presentations_total",
			Help: "Total number of background notification presentations",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pushbell_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
