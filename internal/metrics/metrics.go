// Package metrics exposes Prometheus counters and gauges for scrape runs,
// genre lookups, and enrichment.
//
// Each New call builds its own registry so tests can assert on isolated
// values. Default is the process-wide instance served on /metrics. All
// methods are safe on a nil *Metrics and do nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "venue_events"

// Status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusEmpty   = "empty"
)

// Metrics holds the collectors for one registry
type Metrics struct {
	registry *prometheus.Registry

	scrapeResults  *prometheus.CounterVec
	scrapeEvents   *prometheus.GaugeVec
	scrapeDuration *prometheus.HistogramVec
	genreLookups   *prometheus.CounterVec
	genreCacheHits prometheus.Counter
	enrichedEvents prometheus.Gauge
}

// Default is the process-wide metrics instance
var Default = New()

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.scrapeResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_results_total",
		Help:      "Venue scrape outcomes by status",
	}, []string{"venue", "status"})
	m.scrapeEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scrape_events",
		Help:      "Events found for a venue in its last scrape",
	}, []string{"venue"})
	m.scrapeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_duration_seconds",
		Help:      "Time spent scraping a venue, retries included",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"venue"})
	m.genreLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "genre_lookups_total",
		Help:      "Genre source lookups by source and status",
	}, []string{"source", "status"})
	m.genreCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "genre_cache_hits_total",
		Help:      "Genre lookups answered from the cache",
	})
	m.enrichedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enriched_events",
		Help:      "Events in the last enriched set",
	})

	m.registry.MustRegister(
		m.scrapeResults, m.scrapeEvents, m.scrapeDuration,
		m.genreLookups, m.genreCacheHits, m.enrichedEvents,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveScrape records one venue's outcome
func (m *Metrics) ObserveScrape(venue string, success bool, events int, d time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	switch {
	case !success:
		status = StatusFailure
	case events == 0:
		status = StatusEmpty
	}
	m.scrapeResults.WithLabelValues(venue, status).Inc()
	m.scrapeEvents.WithLabelValues(venue).Set(float64(events))
	m.scrapeDuration.WithLabelValues(venue).Observe(d.Seconds())
}

// GenreLookup counts a query against one genre source
func (m *Metrics) GenreLookup(source string, ok bool) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if !ok {
		status = StatusFailure
	}
	m.genreLookups.WithLabelValues(source, status).Inc()
}

// GenreCacheHit counts a lookup served from the cache
func (m *Metrics) GenreCacheHit() {
	if m == nil {
		return
	}
	m.genreCacheHits.Inc()
}

// SetEnrichedEvents records the size of the last enriched set
func (m *Metrics) SetEnrichedEvents(n int) {
	if m == nil {
		return
	}
	m.enrichedEvents.Set(float64(n))
}
