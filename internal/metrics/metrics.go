package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors. All methods are safe on a
// nil receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	ProviderRequests *prometheus.CounterVec   // labels: op, outcome
	ProviderLatency  *prometheus.HistogramVec // labels: op
	Fallbacks        *prometheus.CounterVec   // labels: op
	CacheLookups     *prometheus.CounterVec   // labels: op, result
	WatchlistSize    prometheus.Gauge
	WatchlistSaves   *prometheus.CounterVec // labels: outcome
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrotoken_provider_requests_total",
			Help: "Market data provider requests by operation and outcome",
		}, []string{"op", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astrotoken_provider_request_duration_seconds",
			Help:    "Market data provider request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrotoken_fallbacks_total",
			Help: "Responses served from sample or synthetic data",
		}, []string{"op"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrotoken_cache_lookups_total",
			Help: "Request cache lookups by operation and result (hit, miss)",
		}, []string{"op", "result"}),
		WatchlistSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "astrotoken_watchlist_size",
			Help: "Number of tokens on the watchlist",
		}),
		WatchlistSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "astrotoken_watchlist_saves_total",
			Help: "Watchlist persistence attempts by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.ProviderRequests,
		m.ProviderLatency,
		m.Fallbacks,
		m.CacheLookups,
		m.WatchlistSize,
		m.WatchlistSaves,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveProvider records one provider call.
func (m *Metrics) ObserveProvider(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(op, outcome(err)).Inc()
	m.ProviderLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Fallback records a response served from fallback data.
func (m *Metrics) Fallback(op string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(op).Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(op string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(op, result).Inc()
}

// WatchlistSaved records a persistence attempt and the resulting size.
func (m *Metrics) WatchlistSaved(size int, err error) {
	if m == nil {
		return
	}
	m.WatchlistSaves.WithLabelValues(outcome(err)).Inc()
	m.WatchlistSize.Set(float64(size))
}

// SetWatchlistSize sets the watchlist gauge.
func (m *Metrics) SetWatchlistSize(size int) {
	if m == nil {
		return
	}
	m.WatchlistSize.Set(float64(size))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
