package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "folio",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})

	interactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "folio",
		Name:      "interactions_total",
		Help:      "Dispatched interaction events by kind and result.",
	}, []string{"kind", "result"})

	mediaStopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "folio",
		Name:      "media_stops_total",
		Help:      "Times embedded media was stopped by leaving a project detail view.",
	})
)

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}
