package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_marketplace_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "food_marketplace_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_marketplace_orders_placed_total",
		Help: "The total number of placed orders",
	})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_marketplace_order_transitions_total",
		Help: "Applied status transitions by target status",
	}, []string{"to"})

	TransitionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_marketplace_order_transition_retries_total",
		Help: "Transitions retried after losing a version race",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_marketplace_events_published_total",
		Help: "Real-time events published by kind",
	}, []string{"kind"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_marketplace_events_dropped_total",
		Help: "Real-time events dropped because a subscriber queue was full",
	}, []string{"kind"})

	ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "food_marketplace_active_subscribers",
		Help: "The number of currently connected order subscribers",
	})

	SinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "food_marketplace_sink_failures_total",
		Help: "Lifecycle events a sink failed to deliver",
	}, []string{"sink"})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
