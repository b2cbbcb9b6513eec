// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subtrack"

// Collector holds every metric of the process. It is built on its own
// registry so tests and multiple binaries never collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	// HTTP
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	RateLimitHits    prometheus.Counter

	// FX
	FXFetches       *prometheus.CounterVec
	FXFetchDuration prometheus.Histogram
	FXUsdToKrw      prometheus.Gauge

	// Domain
	SubscriptionEvents *prometheus.CounterVec
	RemindersTotal     *prometheus.CounterVec
	DashboardCache     *prometheus.CounterVec

	// Worker
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		RateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the per-IP rate limiter",
			},
		),

		FXFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fx_rate_requests_total",
				Help:      "FX rate lookups by outcome (fresh, cached, stale, fallback)",
			},
			[]string{"outcome"},
		),
		FXFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fx_fetch_duration_seconds",
				Help:      "Upstream FX fetch duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		FXUsdToKrw: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "fx_usd_krw",
				Help:      "Last fetched USD to KRW rate",
			},
		),

		SubscriptionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscription_events_total",
				Help:      "Subscription lifecycle changes by type",
			},
			[]string{"type"},
		),
		RemindersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_total",
				Help:      "Payment reminders by outcome (published, duplicate, failed)",
			},
			[]string{"outcome"},
		),
		DashboardCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dashboard_cache_total",
				Help:      "Dashboard cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),

		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Scheduled job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records one finished HTTP request. route is the matched
// pattern, never the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.RequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveFetch implements fx.Observer.
func (c *Collector) ObserveFetch(outcome string, d time.Duration) {
	c.FXFetches.WithLabelValues(outcome).Inc()
	if d > 0 {
		c.FXFetchDuration.Observe(d.Seconds())
	}
}

// ObserveRate implements fx.Observer.
func (c *Collector) ObserveRate(usdToKrw float64) {
	c.FXUsdToKrw.Set(usdToKrw)
}

func (c *Collector) ObserveSubscriptionEvent(eventType string) {
	c.SubscriptionEvents.WithLabelValues(eventType).Inc()
}

func (c *Collector) ObserveReminder(outcome string) {
	c.RemindersTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.DashboardCache.WithLabelValues("hit").Inc()
		return
	}
	c.DashboardCache.WithLabelValues("miss").Inc()
}

func (c *Collector) ObserveRateLimited() {
	c.RateLimitHits.Inc()
}

// ObserveJob records a scheduled job run.
func (c *Collector) ObserveJob(job string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.JobRuns.WithLabelValues(job, result).Inc()
	c.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return strconv.Itoa(status)
	}
	return strconv.Itoa(status/100) + "xx"
}
