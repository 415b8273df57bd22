package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EngagementsTotal counts engagement attempts by kind and outcome.
	EngagementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_engagements_total",
		Help: "Engagement attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	// ViewsTotal counts recorded post views by audience.
	ViewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_views_total",
		Help: "Recorded post views by audience",
	}, []string{"audience"})

	// ConsumptionReports counts depth reports by kind.
	ConsumptionReports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_consumption_reports_total",
		Help: "Scroll and video depth reports received",
	}, []string{"kind"})

	// UploadRateLimitDecisions counts upload limiter outcomes.
	UploadRateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_upload_rate_limit_decisions_total",
		Help: "Upload rate limiter decisions by outcome",
	}, []string{"outcome"})

	// EmailsSent counts outbound emails by template and result.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_emails_sent_total",
		Help: "Outbound emails by template and result",
	}, []string{"template", "result"})

	// BestEffortFailures counts swallowed failures of secondary writes.
	BestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_best_effort_failures_total",
		Help: "Failures of non-blocking side effects by operation",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
