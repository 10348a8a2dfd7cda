package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recycle_pickup"

// Metrics holds the Prometheus collectors for the API and the lifecycle engine.
type Metrics struct {
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Transitions        *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
	MatchedAmount      prometheus.Counter
	Conflicts          prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass a fresh prometheus.NewRegistry()
// in tests so registrations do not collide.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Pickup transitions by event and result",
			},
			[]string{"event", "result"},
		),
		CompletionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "completion_duration_seconds",
				Help:      "Duration of the completion unit of work",
				Buckets:   prometheus.DefBuckets,
			},
		),
		MatchedAmount: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "donation",
				Name:      "matched_amount_total",
				Help:      "Sum of CSR matched amounts",
			},
		),
		Conflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "conflicts_total",
				Help:      "Transitions that lost a concurrent update",
			},
		),
		gatherer: reg,
	}
}

// Middleware records request count and duration per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Transition implements engine.Recorder.
func (m *Metrics) Transition(event, result string) {
	m.Transitions.WithLabelValues(event, result).Inc()
	if result == "conflict" {
		m.Conflicts.Inc()
	}
}

// Completed implements engine.Recorder.
func (m *Metrics) Completed(d time.Duration, matched float64) {
	m.CompletionDuration.Observe(d.Seconds())
	if matched > 0 {
		m.MatchedAmount.Add(matched)
	}
}
