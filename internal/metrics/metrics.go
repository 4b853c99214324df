package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	legendRequests      *prometheus.CounterVec
	remoteFetchDuration prometheus.Histogram
	remoteFetchFailures prometheus.Counter
	composeDuration     prometheus.Histogram
}

// New creates a fresh Metrics registry with HTTP and legend metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "legend",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by the legend service",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "legend",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by the legend service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	legendRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "legend",
		Name:      "graphic_requests_total",
		Help:      "Count of legend graphic requests by outcome",
	}, []string{"outcome"})

	remoteFetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "legend",
		Name:      "remote_fetch_duration_seconds",
		Help:      "Duration of GetLegendGraphic fetches from the OGC server",
		Buckets:   prometheus.DefBuckets,
	})

	remoteFetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "legend",
		Name:      "remote_fetch_failures_total",
		Help:      "Count of failed GetLegendGraphic fetches substituted by placeholders",
	})

	composeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "legend",
		Name:      "compose_duration_seconds",
		Help:      "Duration of legend image composition",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		legendRequests,
		remoteFetchDuration,
		remoteFetchFailures,
		composeDuration,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		legendRequests:      legendRequests,
		remoteFetchDuration: remoteFetchDuration,
		remoteFetchFailures: remoteFetchFailures,
		composeDuration:     composeDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncLegendRequest counts a legend graphic request by outcome
// ("image" or an exception code).
func (m *Metrics) IncLegendRequest(outcome string) {
	if m == nil {
		return
	}
	m.legendRequests.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// ObserveRemoteFetch observes one GetLegendGraphic round trip.
func (m *Metrics) ObserveRemoteFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteFetchDuration.Observe(duration.Seconds())
}

// IncRemoteFetchFailure counts a fetch replaced by a placeholder.
func (m *Metrics) IncRemoteFetchFailure() {
	if m == nil {
		return
	}
	m.remoteFetchFailures.Inc()
}

// ObserveCompose observes one composition pass.
func (m *Metrics) ObserveCompose(duration time.Duration) {
	if m == nil {
		return
	}
	m.composeDuration.Observe(duration.Seconds())
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
