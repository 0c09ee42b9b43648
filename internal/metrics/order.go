package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_create_total",
			Help: "Total order creations by result",
		},
		[]string{"result"},
	)

	orderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_create_duration_ms",
			Help:    "Order creation duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	orderPoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_points_total",
			Help: "Cumulative points of successfully created orders",
		},
	)
)

// RecordOrderCreate 记录一次下单
// result: "success" | "invalid" | "fail"
func RecordOrderCreate(result string, totalPoints int64, started time.Time) {
	orderTotal.WithLabelValues(result).Inc()
	orderDuration.WithLabelValues(result).Observe(float64(time.Since(started).Milliseconds()))
	if result == "success" {
		orderPoints.Add(float64(totalPoints))
	}
}
