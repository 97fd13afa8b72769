// Package metrics holds the Prometheus collectors shared by the YouTube
// client, the outbound transport and the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes recorded on APICalls.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics is a set of collectors registered on a private registry.
// All methods are safe on a nil receiver, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	APICalls            *prometheus.CounterVec
	APICallDuration     *prometheus.HistogramVec
	QuotaRemaining      prometheus.Gauge
	ChannelCacheHits    prometheus.Counter
	ChannelCacheMisses  prometheus.Counter
	CircuitTransitions  *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RequestsInFlight    prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		APICalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytinsight_api_calls_total",
				Help: "YouTube Data API calls, by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		APICallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ytinsight_api_call_duration_seconds",
				Help:    "YouTube Data API call duration in seconds, retries included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		QuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytinsight_quota_remaining",
				Help: "Estimated remaining daily quota units.",
			},
		),
		ChannelCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ytinsight_channel_cache_hits_total",
				Help: "Channel statistics served from cache.",
			},
		),
		ChannelCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ytinsight_channel_cache_misses_total",
				Help: "Channel statistics fetched from the API.",
			},
		),
		CircuitTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytinsight_circuit_transitions_total",
				Help: "Circuit breaker state changes, by host and new state.",
			},
			[]string{"host", "state"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytinsight_http_requests_total",
				Help: "HTTP requests served, by route and status.",
			},
			[]string{"route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ytinsight_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds, by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytinsight_requests_in_flight",
				Help: "Number of HTTP requests currently being served.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.APICalls,
		m.APICallDuration,
		m.QuotaRemaining,
		m.ChannelCacheHits,
		m.ChannelCacheMisses,
		m.CircuitTransitions,
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.RequestsInFlight,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAPICall records one API call and its duration.
func (m *Metrics) ObserveAPICall(endpoint string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.APICalls.WithLabelValues(endpoint, outcome).Inc()
	m.APICallDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// SetQuotaRemaining publishes the quota estimate.
func (m *Metrics) SetQuotaRemaining(units int) {
	if m == nil {
		return
	}
	m.QuotaRemaining.Set(float64(units))
}

// CacheHit counts a channel cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.ChannelCacheHits.Inc()
}

// CacheMiss counts a channel cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.ChannelCacheMisses.Inc()
}

// CircuitChanged counts a circuit breaker transition to state.
func (m *Metrics) CircuitChanged(host, state string) {
	if m == nil {
		return
	}
	m.CircuitTransitions.WithLabelValues(host, state).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// InFlight adjusts the in-flight request gauge by delta.
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.RequestsInFlight.Add(delta)
}
