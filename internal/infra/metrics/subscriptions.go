package metrics

import (
	"subscription-commerce/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionTransitionsTotal,
		lifecycleSweepsTotal,
		lifecycleSweepDuration,
		subscriptionsTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription state transitions by target status.",
		},
		[]string{"to"}, // 'grace_period', 'expired', 'cancelled'
	)

	lifecycleSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_sweeps_total",
			Help: "Lifecycle sweeps by result (ok/skipped/error).",
		},
		[]string{"result"},
	)

	lifecycleSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifecycle_sweep_duration_seconds",
			Help:    "Wall time of one lifecycle sweep.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Number of subscriptions by status as of the last sweep.",
		},
		[]string{"status"},
	)
)

func AddSubscriptionTransitions(to model.SubscriptionStatus, count int) {
	if count <= 0 {
		return
	}
	subscriptionTransitionsTotal.WithLabelValues(norm(string(to))).Add(float64(count))
}

func ObserveSweep(result string, seconds float64) {
	lifecycleSweepsTotal.WithLabelValues(norm(result)).Inc()
	if result != "skipped" {
		lifecycleSweepDuration.Observe(seconds)
	}
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusGracePeriod,
		model.SubscriptionStatusExpired,
		model.SubscriptionStatusCancelled,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
