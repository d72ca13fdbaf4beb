package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transactions *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Regenerated  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xhuma_transactions_total",
			Help: "Completed transactions by type and outcome code",
		}, []string{"transaction", "code"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xhuma_transaction_duration_seconds",
			Help:    "End-to-end transaction latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"transaction"}),
		Regenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "xhuma_documents_regenerated_total",
			Help: "Documents rebuilt during retrieve after cache eviction",
		}),
	}
}
