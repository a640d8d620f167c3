// Package metrics defines the Prometheus collectors of the coupon service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coupon_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	CouponMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_mutations_total",
		Help: "Coupon writes by operation",
	}, []string{"op"})

	IssuerAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_issuer_assignments_total",
		Help: "Issuer assignment attempts by result",
	}, []string{"result"})

	CouponsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupon_expired_by_sweep_total",
		Help: "Coupons moved to expired by the scheduled sweep",
	})

	FacetCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_facet_cache_lookups_total",
		Help: "Facet cache lookups by result",
	}, []string{"result"})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coupon_sse_clients",
		Help: "Connected issuer-change stream clients",
	})
)

// ObserveMutation counts one coupon write.
func ObserveMutation(op string) {
	CouponMutations.WithLabelValues(op).Inc()
}

// ObserveAssignment counts one assignment attempt.
func ObserveAssignment(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	IssuerAssignments.WithLabelValues(result).Inc()
}

// ObserveCacheLookup counts a facet cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		FacetCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	FacetCacheLookups.WithLabelValues("miss").Inc()
}

// Middleware records request counts and latency keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
