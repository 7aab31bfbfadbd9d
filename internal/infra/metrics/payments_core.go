package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		refundsTotal,
		refundsAmountTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment confirmation requests by result (verified/failed).",
		},
		[]string{"status"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund state changes by status (pending/processed/failed).",
		},
		[]string{"status"},
	)

	refundsAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_amount_total",
			Help: "Minor-unit value of processed refunds, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRefund(status string) {
	refundsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRefundedAmount(currency string, amount int64) {
	refundsAmountTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
