package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat engine.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	eventsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_dispatched_total",
			Help: "Total number of inbound client events routed by the dispatcher.",
		},
		[]string{"event"},
	)
	eventsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_events_rejected_total",
			Help: "Total number of inbound events rejected with an error event.",
		},
	)
	deliveryDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_delivery_drops_total",
			Help: "Total number of outbound events dropped for unreachable recipients.",
		},
	)
	reactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_reactions_total",
			Help: "Total number of reactions recorded.",
		},
	)
	archiveDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_archive_drops_total",
			Help: "Total number of messages dropped by a saturated archive queue.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		eventsDispatchedTotal,
		eventsRejectedTotal,
		deliveryDropsTotal,
		reactionsTotal,
		archiveDropsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncEventDispatched(event string) {
	eventsDispatchedTotal.WithLabelValues(event).Inc()
}

func IncEventRejected() {
	eventsRejectedTotal.Inc()
}

func IncDeliveryDrop() {
	deliveryDropsTotal.Inc()
}

func IncReaction() {
	reactionsTotal.Inc()
}

func IncArchiveDrop() {
	archiveDropsTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
