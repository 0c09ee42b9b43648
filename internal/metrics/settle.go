package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settle_attempts_total",
			Help: "Total draw settlement attempts by result status",
		},
		[]string{"status"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settle_duration_ms",
			Help:    "Draw settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"status"},
	)

	settlePoolPoints = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "settle_pool_points",
			Help: "Latest settled pool breakdown in points",
		},
		[]string{"share"},
	)
)

// RecordSettle 记录一次开奖尝试
// status: "ok" | "already_drawn" | "closing" | "race_lost" | "error"
func RecordSettle(status string, started time.Time) {
	settleTotal.WithLabelValues(status).Inc()
	settleDuration.WithLabelValues(status).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordSettledPool 记录最近一次成功开奖的奖池拆分
func RecordSettledPool(gross, net, p1, p2, p3, carryOut int64) {
	settlePoolPoints.WithLabelValues("gross").Set(float64(gross))
	settlePoolPoints.WithLabelValues("net").Set(float64(net))
	settlePoolPoints.WithLabelValues("p1").Set(float64(p1))
	settlePoolPoints.WithLabelValues("p2").Set(float64(p2))
	settlePoolPoints.WithLabelValues("p3").Set(float64(p3))
	settlePoolPoints.WithLabelValues("carry_out").Set(float64(carryOut))
}
