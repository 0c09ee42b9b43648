package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notifyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_notify_total",
			Help: "Total payment gateway callbacks by outcome",
		},
		[]string{"outcome"},
	)

	notifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credit_notify_duration_ms",
			Help:    "Payment callback processing duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"outcome"},
	)
)

// RecordNotify 记录一次支付回调
// outcome: "paid" | "duplicate" | "bad_sign" | "mismatch" | "error"
func RecordNotify(outcome string, started time.Time) {
	notifyTotal.WithLabelValues(outcome).Inc()
	notifyDuration.WithLabelValues(outcome).Observe(float64(time.Since(started).Milliseconds()))
}
