package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	HelpRequestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "helpmarket_requests_created_total",
			Help: "Total number of help requests created",
		},
	)

	ApplicationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpmarket_applications_total",
			Help: "Application workflow events (applied, accepted, rejected, removed)",
		},
		[]string{"event"},
	)

	ReportEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpmarket_reports_total",
			Help: "Report events (filed, resolved action, dismissed)",
		},
		[]string{"event"},
	)

	LiveEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpmarket_live_events_total",
			Help: "Live update events published to websocket rooms",
		},
		[]string{"event"},
	)

	LiveOnlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "helpmarket_live_online_users",
			Help: "Users with at least one open websocket on this instance",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(HelpRequestsCreated)
		prometheus.MustRegister(ApplicationEvents)
		prometheus.MustRegister(ReportEvents)
		prometheus.MustRegister(LiveEvents)
		prometheus.MustRegister(LiveOnlineUsers)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
