package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Published prometheus.Counter
	Dropped   prometheus.Counter
	Failed    prometheus.Counter
	Pending   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "xhuma_audit_records_published_total",
			Help: "Audit records written to the sink",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "xhuma_audit_records_dropped_total",
			Help: "Audit records dropped because the buffer was full",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "xhuma_audit_records_failed_total",
			Help: "Audit records lost to sink write failures",
		}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "xhuma_audit_buffer_depth",
			Help: "Audit records waiting to be written",
		}),
	}
}
