package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments cache outcomes per kind.
type Metrics struct {
	Hits            *prometheus.CounterVec
	Misses          *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	ComputeDuration *prometheus.HistogramVec
	Degraded        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhuma_cache_hits_total",
			Help: "Cache hits by kind",
		}, []string{"kind"}),
		Misses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhuma_cache_misses_total",
			Help: "Cache misses by kind",
		}, []string{"kind"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhuma_cache_errors_total",
			Help: "Cache backend errors by kind and operation; each is served as a miss",
		}, []string{"kind", "op"}),
		ComputeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xhuma_cache_compute_duration_seconds",
			Help:    "Duration of compute functions run on a miss",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "xhuma_cache_degraded",
			Help: "1 while the cache backend is failing and every read is a miss",
		}),
	}
}
