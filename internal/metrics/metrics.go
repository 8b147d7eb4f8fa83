package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"route", "code"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kompassi", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	StateApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Name: "programme_state_applied_total", Help: "Programme apply_state runs by state",
	}, []string{"state"})
	BadgesEnsured = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Name: "badges_ensured_total", Help: "Badge ensure outcomes",
	}, []string{"result"})
	MessagesDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Name: "messages_delivered_total", Help: "Delivered person messages",
	}, []string{"channel"})
	TasksDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kompassi", Name: "tasks_dispatched_total", Help: "Background tasks by dispatch mode",
	}, []string{"task", "mode"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kompassi", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, StateApplied, BadgesEnsured, MessagesDelivered, TasksDispatched, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
