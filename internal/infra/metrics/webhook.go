package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		WebhookRequests,
		WebhookDuration,
	)
}

var (
	// result: applied|duplicate|ignored|auth|validation|not_found|reversion|error
	WebhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Count of gateway webhook deliveries by outcome.",
		},
		[]string{"result"},
	)

	WebhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Duration of webhook handling in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"result"},
	)
)

func ObserveWebhook(result string, seconds float64) {
	WebhookRequests.WithLabelValues(norm(result)).Inc()
	WebhookDuration.WithLabelValues(norm(result)).Observe(seconds)
}
