package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once
	metrics     *serverMetrics
)

type serverMetrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	inFlight               prometheus.Gauge
}

func getMetrics() *serverMetrics {
	metricsOnce.Do(func() {
		metrics = &serverMetrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ogimage_http_requests_total",
					Help: "Image requests by response code",
				},
				[]string{"code"},
			),
			requestDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ogimage_http_request_duration_seconds",
					Help:    "Image request latency by response code",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
				},
				[]string{"code"},
			),
			inFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ogimage_http_requests_in_flight",
					Help: "Image requests currently being served",
				},
			),
		}
	})
	return metrics
}
