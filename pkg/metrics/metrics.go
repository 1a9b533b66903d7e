package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "larkrelay_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// UpstreamRequests counts calls to third-party APIs by upstream and result (success|failure).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larkrelay_upstream_requests_total",
			Help: "Total number of requests made to upstream APIs",
		},
		[]string{"upstream", "result"},
	)

	// BackgroundTasks counts detached tasks by name and outcome (success|failure|panic|rejected).
	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larkrelay_background_tasks_total",
			Help: "Total number of background tasks executed",
		},
		[]string{"task", "result"},
	)

	// InflightTasks tracks background tasks currently running.
	InflightTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "larkrelay_background_tasks_inflight",
			Help: "Number of background tasks currently running",
		},
	)

	// DuplicateEvents counts inbound messages dropped by the dedup marker.
	DuplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "larkrelay_duplicate_events_total",
			Help: "Total number of inbound events skipped as duplicates",
		},
	)

	// TokenFetches counts tenant access token issuance calls by result.
	TokenFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larkrelay_token_fetches_total",
			Help: "Total number of tenant access token fetches",
		},
		[]string{"result"},
	)

	// WebhookDeliveries counts outbound custom-bot deliveries by card variant and result.
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "larkrelay_webhook_deliveries_total",
			Help: "Total number of outbound webhook deliveries",
		},
		[]string{"variant", "result"},
	)
)

// Result maps an error into the label value used across counters.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
