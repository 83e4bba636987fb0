package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultDeferred = "deferred"

	RealtimePublished  = "published"
	RealtimeSuppressed = "suppressed"
	RealtimeMalformed  = "malformed"
)

// LikeMetrics holds the prometheus collectors of the like pipeline.
// Every instance owns its registry so that tests can build as many as they need.
type LikeMetrics struct {
	Registry *prometheus.Registry

	LikesQueued        prometheus.Counter
	Flushes            *prometheus.CounterVec // by result
	RowsWritten        *prometheus.CounterVec // by op: insert, delete
	PendingActions     prometheus.Gauge
	DeadLettered       prometheus.Counter
	PersistFailures    prometheus.Counter
	EventsPublished    *prometheus.CounterVec // by origin: own, external
	EventsDropped      prometheus.Counter
	RealtimeEvents     *prometheus.CounterVec // by outcome
	RealtimeReconnects prometheus.Counter
}

func NewLikeMetrics(namespace string) *LikeMetrics {
	registry := prometheus.NewRegistry()

	m := &LikeMetrics{
		Registry: registry,
		LikesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_queued_total",
			Help:      "Total number of like/unlike actions queued.",
		}),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_flushes_total",
			Help:      "Total number of flush attempts by result.",
		}, []string{"result"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_rows_written_total",
			Help:      "Total number of like rows inserted or deleted by flushes.",
		}, []string{"op"}),
		PendingActions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "likes_pending_actions",
			Help:      "Number of unflushed like actions.",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_dead_lettered_total",
			Help:      "Total number of like actions dropped after exhausting retries.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_persist_failures_total",
			Help:      "Total number of failed writes of the pending queue.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_events_published_total",
			Help:      "Total number of like events published on the update stream.",
		}, []string{"origin"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_events_dropped_total",
			Help:      "Total number of like events dropped for slow subscribers.",
		}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_like_changes_total",
			Help:      "Total number of change feed events by outcome.",
		}, []string{"outcome"}),
		RealtimeReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_reconnects_total",
			Help:      "Total number of change feed reconnect attempts.",
		}),
	}

	registry.MustRegister(
		m.LikesQueued,
		m.Flushes,
		m.RowsWritten,
		m.PendingActions,
		m.DeadLettered,
		m.PersistFailures,
		m.EventsPublished,
		m.EventsDropped,
		m.RealtimeEvents,
		m.RealtimeReconnects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus text format
func (m *LikeMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
