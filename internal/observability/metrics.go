package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the serving surface. Watch for: sudden drops (service down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation during shutdown drain.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream informers call rate. Watch for: error vs success ratio.
	FetchTotal *prometheus.CounterVec

	// Upstream informers latency per request. Watch for: p95 > 2s (upstream degradation).
	FetchDuration *prometheus.HistogramVec

	// Poll ticks that ran the fetch. Rate should track the configured interval.
	PollRunsTotal prometheus.Counter

	// Poll ticks skipped by the throttle guard or an in-flight run.
	PollSkipsTotal *prometheus.CounterVec

	// Entity refreshes applied. fetch failures = fetchTotal{status!="success"}.
	EntityUpdatesTotal prometheus.Counter

	// Snapshot store operations by op and outcome.
	SnapshotOpsTotal *prometheus.CounterVec

	// Rate limit denials on the serving surface. Watch for: abusive clients.
	RateLimitDeniedTotal prometheus.Counter

	entityAgeGaugeOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherFetchTotal",
			Help: "Total number of Yandex.Weather informers calls",
		},
		[]string{"status"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherFetchDurationSeconds",
			Help:    "Yandex.Weather informers latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	PollRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pollRunsTotal",
			Help: "Total number of poll ticks that executed a fetch",
		},
	)
	PollSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pollSkipsTotal",
			Help: "Poll ticks skipped before fetching (throttled, in_flight)",
		},
		[]string{"reason"},
	)
	EntityUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entityUpdatesTotal",
			Help: "Total number of successful entity refreshes",
		},
	)
	SnapshotOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshotOpsTotal",
			Help: "Snapshot store operations by op (load, save) and outcome",
		},
		[]string{"op", "outcome"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		FetchTotal, FetchDuration,
		PollRunsTotal, PollSkipsTotal, EntityUpdatesTotal,
		SnapshotOpsTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterEntityAgeGauge registers a gauge reporting seconds since the entity's
// last successful refresh. ageSeconds should return a negative value while the
// entity has never been populated; that is exported as NaN-free -1.
func RegisterEntityAgeGauge(ageSeconds func() float64) {
	entityAgeGaugeOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "entityAgeSeconds",
					Help: "Seconds since the weather entity last applied a successful fetch (-1 before first fetch)",
				},
				ageSeconds,
			),
		)
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
