package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Subsystem: "job", Name: "runs_total",
		Help: "Scheduled maintenance runs (badges_cleanup, messages_resend)",
	}, []string{"job"})
	jobErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Subsystem: "job", Name: "errors_total",
		Help: "Maintenance runs that failed or panicked",
	}, []string{"job"})
	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kompassi", Subsystem: "job", Name: "duration_seconds",
		Help:    "Maintenance run duration",
		Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
	}, []string{"job"})
	// A stale value means badges are not being cleaned or messages not reaching new recipients.
	jobLastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kompassi", Subsystem: "job", Name: "last_success_timestamp_seconds",
		Help: "Unix time of the last successful maintenance run",
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(jobRuns, jobErrors, jobDuration, jobLastSuccess)
}

func observe(name string, started time.Time, err error) {
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	if err != nil {
		jobErrors.WithLabelValues(name).Inc()
		return
	}
	jobLastSuccess.WithLabelValues(name).Set(float64(time.Now().Unix()))
}
