package api

import (
	"context"
	"net/http"
	"time"

	"github.com/drewbanne/Weatherly/dashboard"
	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	registry        *prometheus.Registry
	searches        *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	providerLatency *prometheus.HistogramVec
}

// NewMetrics creates a registry with the runtime collectors and the search metrics
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weatherly",
			Name:      "searches_total",
			Help:      "Searches by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weatherly",
			Name:      "search_duration_seconds",
			Help:      "Time from issuing a search to its outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weatherly",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of calls to the weather provider.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}, []string{"call", "outcome"}),
	}
	reg.MustRegister(m.searches, m.searchDuration, m.providerLatency)
	return m
}

// ObserveSearch records the outcome of a finished search
func (m *Metrics) ObserveSearch(outcome string, elapsed time.Duration) {
	m.searches.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
}

// RegisterCache exposes hit and miss counts of a cache layer
func (m *Metrics) RegisterCache(name string, stats func() (hits, misses int)) {
	for _, result := range []string{"hit", "miss"} {
		result := result
		m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "weatherly",
			Name:        "cache_lookups_total",
			Help:        "Cache lookups by layer and result.",
			ConstLabels: prometheus.Labels{"cache": name, "result": result},
		}, func() float64 {
			hits, misses := stats()
			if result == "hit" {
				return float64(hits)
			}
			return float64(misses)
		}))
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument wraps a source so every provider call is timed
func (m *Metrics) Instrument(source datasource.Source) datasource.Source {
	return &instrumentedSource{source: source, latency: m.providerLatency}
}

// instrumentedSource records provider latency by call and outcome
type instrumentedSource struct {
	source  datasource.Source
	latency *prometheus.HistogramVec
}

func (s *instrumentedSource) Name() string {
	return s.source.Name()
}

func (s *instrumentedSource) GetWeather(ctx context.Context, q models.Query) (models.WeatherSnapshot, error) {
	start := time.Now()
	snap, err := s.source.GetWeather(ctx, q)
	s.latency.WithLabelValues("weather", dashboard.Outcome(err)).Observe(time.Since(start).Seconds())
	return snap, err
}

func (s *instrumentedSource) FetchForecast(ctx context.Context, q models.Query) (models.ForecastFeed, error) {
	start := time.Now()
	feed, err := s.source.FetchForecast(ctx, q)
	s.latency.WithLabelValues("forecast", dashboard.Outcome(err)).Observe(time.Since(start).Seconds())
	return feed, err
}

var _ datasource.Source = (*instrumentedSource)(nil)
var _ dashboard.Observer = (*Metrics)(nil)
