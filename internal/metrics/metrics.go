package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutriplan",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nutriplan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nutriplan",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	subscriptionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutriplan",
			Subsystem: "subscription",
			Name:      "transitions_total",
			Help:      "Subscription status transitions",
		},
		[]string{"status"},
	)

	chatMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutriplan",
			Subsystem: "chat",
			Name:      "messages_processed_total",
			Help:      "Chat messages processed by the async worker",
		},
		[]string{"result"},
	)

	nutritionPlansCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nutriplan",
			Subsystem: "nutrition",
			Name:      "plans_created_total",
			Help:      "Nutrition plans created",
		},
	)

	cronJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nutriplan",
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Maintenance job runs",
		},
		[]string{"job", "status"},
	)
)

// Middleware собирает HTTP-метрики. Путь берется из шаблона маршрута gin,
// чтобы id в URL не плодили серии.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler - эндпоинт /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordSubscriptionTransition(status string) {
	subscriptionTransitions.WithLabelValues(status).Inc()
}

// RecordChatMessage: result = delivered | failed
func RecordChatMessage(result string) {
	chatMessagesProcessed.WithLabelValues(result).Inc()
}

func RecordNutritionPlanCreated() {
	nutritionPlansCreated.Inc()
}

func RecordCronRun(job string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	cronJobRuns.WithLabelValues(job, status).Inc()
}
