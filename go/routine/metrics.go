package routine

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

var (
	metricsOnce sync.Once
	metrics     *routineMetrics
)

type routineMetrics struct {
	executionsTotal *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	running         *prometheus.GaugeVec
}

func getMetrics() *routineMetrics {
	metricsOnce.Do(func() {
		metrics = &routineMetrics{
			executionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "routine_executions_total",
					Help: "Total number of routine executions by outcome",
				},
				[]string{"routine", "status"},
			),
			durationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "routine_execution_duration_seconds",
					Help:    "Duration of routine executions",
					Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
				},
				[]string{"routine"},
			),
			running: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "routine_running",
					Help: "1 while the routine loop is running, 0 once it has exited",
				},
				[]string{"routine"},
			),
		}
	})
	return metrics
}
