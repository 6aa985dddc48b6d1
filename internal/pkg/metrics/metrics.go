// Package metrics registers the service's Prometheus collectors and exposes
// the gin middleware and handler that serve them.
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
			Name: "skynotes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skynotes_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// PipelineStages counts finished pipeline stages by stage and outcome.
	PipelineStages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skynotes_pipeline_stages_total",
			Help: "Processed pipeline stages",
		},
		[]string{"stage", "outcome"},
	)

	// ThumbnailDuration observes calls to the thumbnail service.
	ThumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skynotes_thumbnail_call_duration_seconds",
			Help:    "Latency of thumbnail service calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// QuotaRejections counts uploads refused by the quota guard.
	QuotaRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skynotes_quota_rejections_total",
			Help: "Uploads rejected because the owner's quota would be exceeded",
		},
	)

	// ShareResolutions counts token-gated access attempts by result.
	ShareResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skynotes_share_resolutions_total",
			Help: "Share token resolutions",
		},
		[]string{"result"},
	)

	// AnalyticsDropped counts access records that could not be stored.
	AnalyticsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skynotes_analytics_dropped_total",
			Help: "Access analytics records that failed to persist",
		},
	)

	// QuotaCacheLookups counts quota limit cache lookups by result (hit, miss).
	QuotaCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skynotes_quota_cache_lookups_total",
			Help: "Quota limit cache lookups",
		},
		[]string{"result"},
	)
)

// RegisterGauge registers a gauge whose value is read from fn on every scrape.
func RegisterGauge(name, help string, fn func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn)
}

// Middleware records request count and latency per route template.
// Unmatched routes are grouped under "unmatched" to bound cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default Prometheus registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
