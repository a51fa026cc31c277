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
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests processed by the bridge facade.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	upstreamConnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_upstream_connects_total",
			Help: "Total number of upstream connection attempts by result.",
		},
		[]string{"result"},
	)
	upstreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_upstream_events_total",
			Help: "Total number of push events received from the chat server.",
		},
		[]string{"event"},
	)
	protocolRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_protocol_requests_total",
			Help: "Total number of request/acknowledgement operations started.",
		},
		[]string{"action"},
	)
	protocolRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_protocol_retries_total",
			Help: "Total number of authentication retries inside operations.",
		},
		[]string{"action"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_ws_active_connections",
			Help: "Number of active UI websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_ws_events_total",
			Help: "Total number of events pushed to UI websocket clients.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		upstreamConnectsTotal,
		upstreamEventsTotal,
		protocolRequestsTotal,
		protocolRetriesTotal,
		wsActiveConnections,
		wsEventsTotal,
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

func IncUpstreamConnect(result string) {
	upstreamConnectsTotal.WithLabelValues(result).Inc()
}

func IncUpstreamEvent(event string) {
	upstreamEventsTotal.WithLabelValues(event).Inc()
}

func IncProtocolRequest(action string) {
	protocolRequestsTotal.WithLabelValues(action).Inc()
}

func IncProtocolRetry(action string) {
	protocolRetriesTotal.WithLabelValues(action).Inc()
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
