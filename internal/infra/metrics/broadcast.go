package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		broadcastRunsTotal,
		broadcastDeliveriesTotal,
		broadcastRunDurationSec,
	)
}

var (
	broadcastRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_runs_total",
			Help: "Total number of broadcast runs started.",
		},
	)

	broadcastDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Per-recipient broadcast delivery results (sent/blocked/failed).",
		},
		[]string{"result"},
	)

	broadcastRunDurationSec = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_run_duration_seconds",
			Help:    "Wall time of whole broadcast runs.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)
)

func IncBroadcastRun() {
	broadcastRunsTotal.Inc()
}

func IncBroadcastDelivery(result string) {
	broadcastDeliveriesTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveBroadcastRun(seconds float64) {
	broadcastRunDurationSec.Observe(seconds)
}
