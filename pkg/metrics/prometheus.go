package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdesk_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LoginsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantdesk_logins_total",
			Help: "Total number of successful logins",
		},
	)

	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdesk_auth_failures_total",
			Help: "Total number of authentication failures by reason",
		},
		[]string{"reason"},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantdesk_audit_queue_depth",
			Help: "Number of audit entries waiting in the recorder queue",
		},
	)

	AuditDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantdesk_audit_entries_dropped_total",
			Help: "Audit entries dropped because the recorder queue was full",
		},
	)
)
