// middleware/metrics.go
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	accessDecisionsTotal *prometheus.CounterVec
)

// RegisterMetrics initializes the HTTP and authorization metrics and
// returns the handler for /metrics.
func RegisterMetrics(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		accessDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Authorization outcomes by HTTP status class",
		}, []string{"outcome"})

		for _, collector := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration, accessDecisionsTotal} {
			if err := registerCollector(registry, collector); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	return promhttp.Handler(), nil
}

// Metrics instruments requests with counters and latency histograms.
// Routes are labelled by their declared pattern, not the raw path, to
// keep cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if httpRequestsTotal == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		pathLabel := c.FullPath()
		if pathLabel == "" {
			pathLabel = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestDuration.WithLabelValues(c.Request.Method, pathLabel).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, pathLabel, strconv.Itoa(status)).Inc()

		switch status {
		case http.StatusUnauthorized:
			accessDecisionsTotal.WithLabelValues("unauthenticated").Inc()
		case http.StatusForbidden:
			accessDecisionsTotal.WithLabelValues("denied").Inc()
		default:
			if status < 400 {
				accessDecisionsTotal.WithLabelValues("allowed").Inc()
			}
		}
	}
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
