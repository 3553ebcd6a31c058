package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	backendOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelcache",
			Subsystem: "backend",
			Name:      "operations_total",
			Help:      "Backend store/restore operations by outcome",
		},
		[]string{"backend", "op", "outcome"},
	)

	backendOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelcache",
			Subsystem: "backend",
			Name:      "operation_duration_seconds",
			Help:      "Duration of backend store/restore operations in seconds",
			Buckets:   []float64{.005, .025, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"backend", "op"},
	)

	restoreWinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelcache",
			Subsystem: "restore",
			Name:      "wins_total",
			Help:      "Restore races won per backend",
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(backendOpsTotal, backendOpDuration, restoreWinsTotal)
}

// observe records one adapter call.
func observe(backend, op string, err error, dur time.Duration) {
	backendOpsTotal.WithLabelValues(backend, op, outcome(err)).Inc()
	backendOpDuration.WithLabelValues(backend, op).Observe(dur.Seconds())
}
