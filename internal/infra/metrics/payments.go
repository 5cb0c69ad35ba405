package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		paymentsDegradedFallbackTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by outcome (submitted/confirmed/rejected/duplicate).",
		},
		[]string{"outcome"},
	)

	paymentsRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total monetary value of confirmed payments, in rubles.",
		},
	)

	paymentsDegradedFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_degraded_fallback_total",
			Help: "Submissions kept only in the in-memory fallback after a store failure.",
		},
	)
)

func IncPayment(outcome string) {
	paymentsTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddPaymentRevenue(amount int64) {
	paymentsRevenueTotal.Add(float64(amount))
}

func IncDegradedFallback() {
	paymentsDegradedFallbackTotal.Inc()
}
