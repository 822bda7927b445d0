package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveScrape(t *testing.T) {
	m := New()

	m.ObserveScrape("the-camel", true, 12, 2*time.Second)
	m.ObserveScrape("the-camel", true, 0, time.Second)
	m.ObserveScrape("gallery5", false, 0, time.Second)

	tests := []struct {
		venue  string
		status string
		want   float64
	}{
		{"the-camel", StatusSuccess, 1},
		{"the-camel", StatusEmpty, 1},
		{"gallery5", StatusFailure, 1},
		{"gallery5", StatusSuccess, 0},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.scrapeResults.WithLabelValues(tt.venue, tt.status))
		if got != tt.want {
			t.Errorf("scrape_results_total{%s,%s} = %v, want %v", tt.venue, tt.status, got, tt.want)
		}
	}

	if got := testutil.ToFloat64(m.scrapeEvents.WithLabelValues("the-camel")); got != 0 {
		t.Errorf("scrape_events{the-camel} = %v, want last value 0", got)
	}
}

func TestGenreCounters(t *testing.T) {
	m := New()

	m.GenreLookup("spotify", true)
	m.GenreLookup("spotify", false)
	m.GenreLookup("spotify", false)
	m.GenreCacheHit()
	m.SetEnrichedEvents(42)

	if got := testutil.ToFloat64(m.genreLookups.WithLabelValues("spotify", StatusFailure)); got != 2 {
		t.Errorf("genre_lookups_total{spotify,failure} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.genreCacheHits); got != 1 {
		t.Errorf("genre_cache_hits_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.enrichedEvents); got != 42 {
		t.Errorf("enriched_events = %v, want 42", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	// None of these may panic
	m.ObserveScrape("x", true, 1, time.Second)
	m.GenreLookup("x", true)
	m.GenreCacheHit()
	m.SetEnrichedEvents(1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.GenreCacheHit()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "venue_events_genre_cache_hits_total 1") {
		t.Errorf("exposition missing cache hit counter:\n%s", body)
	}
}
