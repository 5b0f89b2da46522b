// Package metrics is the C10 Prometheus registry: one Registry value,
// constructed once by Engine, threaded into every other component instead
// of relying on the package-level default registerer the corpus's
// middleware uses for HTTP-only metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector the engine exposes at GET /metrics.
type Registry struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	OVHRequestsTotal     *prometheus.CounterVec
	OVHRequestDuration    *prometheus.HistogramVec

	QueueTicksTotal      *prometheus.CounterVec
	QueueTaskPurchased   *prometheus.GaugeVec
	QueueTaskQuantity    *prometheus.GaugeVec

	ProbeDuration        prometheus.Histogram
	ProbeCacheHitTotal   prometheus.Counter
	ProbeCacheMissTotal  prometheus.Counter

	MonitorSubscriptionsActive     prometheus.Gauge
	MonitorNotificationsSentTotal  prometheus.Counter

	NotifierMessagesSentTotal    prometheus.Counter
	NotifierMessagesDedupedTotal prometheus.Counter
}

// New builds a fresh registry (its own prometheus.Registry, not the global
// default one) and registers every collector against it.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registerer: reg,
		Gatherer:   reg,

		OVHRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ovh_http_requests_total",
			Help: "OVH API calls by account, method and status.",
		}, []string{"account", "method", "status"}),

		OVHRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ovh_http_request_duration_seconds",
			Help:    "OVH API call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"account", "method"}),

		QueueTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_ticks_total",
			Help: "Scheduler tick outcomes.",
		}, []string{"outcome"}),

		QueueTaskPurchased: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_task_purchased",
			Help: "Units purchased so far, per task.",
		}, []string{"task_id"}),

		QueueTaskQuantity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_task_quantity",
			Help: "Target quantity, per task.",
		}, []string{"task_id"}),

		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "availability_probe_duration_seconds",
			Help:    "Availability probe call latency.",
			Buckets: prometheus.DefBuckets,
		}),

		ProbeCacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "availability_cache_hit_total",
			Help: "Availability probe cache hits.",
		}),

		ProbeCacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "availability_cache_miss_total",
			Help: "Availability probe cache misses.",
		}),

		MonitorSubscriptionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_subscriptions_active",
			Help: "Subscriptions currently polled by the availability monitor.",
		}),

		MonitorNotificationsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_notifications_sent_total",
			Help: "Notifications triggered by monitor transitions.",
		}),

		NotifierMessagesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_messages_sent_total",
			Help: "Messages delivered by the notifier sink.",
		}),

		NotifierMessagesDedupedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifier_messages_deduped_total",
			Help: "Messages suppressed by the notifier's dedup window.",
		}),
	}

	reg.MustRegister(
		r.OVHRequestsTotal, r.OVHRequestDuration,
		r.QueueTicksTotal, r.QueueTaskPurchased, r.QueueTaskQuantity,
		r.ProbeDuration, r.ProbeCacheHitTotal, r.ProbeCacheMissTotal,
		r.MonitorSubscriptionsActive, r.MonitorNotificationsSentTotal,
		r.NotifierMessagesSentTotal, r.NotifierMessagesDedupedTotal,
	)

	return r
}
