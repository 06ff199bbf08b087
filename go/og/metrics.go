package og

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	lookupHit   = "hit"
	lookupMiss  = "miss"
	lookupError = "error"
)

var (
	metricsOnce sync.Once
	metrics     *rendererMetrics
)

type rendererMetrics struct {
	cacheLookupsTotal     *prometheus.CounterVec
	cacheWriteErrorsTotal prometheus.Counter
	renderDurationSeconds *prometheus.HistogramVec
	cacheEntries          prometheus.Gauge
}

func getMetrics() *rendererMetrics {
	metricsOnce.Do(func() {
		metrics = &rendererMetrics{
			cacheLookupsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ogimage_cache_lookups_total",
					Help: "Cache lookups by result",
				},
				[]string{"result"},
			),
			cacheWriteErrorsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "ogimage_cache_write_errors_total",
					Help: "Rendered images that could not be stored",
				},
			),
			renderDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "ogimage_render_duration_seconds",
					Help:    "Duration of cache-miss renders",
					Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
				},
				[]string{"success"},
			),
			cacheEntries: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "ogimage_cache_entries",
					Help: "Images held by the cache, as of the last refresh",
				},
			),
		}
	})
	return metrics
}
