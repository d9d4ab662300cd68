package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Maintenance records background job runs. A nil receiver is a no-op.
type Maintenance struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

func NewMaintenance(reg prometheus.Registerer) *Maintenance {
	if reg == nil {
		return &Maintenance{}
	}
	m := &Maintenance{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_job_duration_seconds",
			Help:    "Duration of maintenance jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_job_runs_total",
			Help: "Maintenance job runs by result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// ObserveRun records one run of job. A non-nil err counts as a failure.
func (m *Maintenance) ObserveRun(job string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runs.WithLabelValues(job, result).Inc()
}
