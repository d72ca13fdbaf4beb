package adapters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhuma_adapter_calls_total",
			Help: "Adapter call attempts by adapter and outcome",
		}, []string{"adapter", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xhuma_adapter_call_duration_seconds",
			Help:    "Adapter call attempt latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter"}),
	}
}
