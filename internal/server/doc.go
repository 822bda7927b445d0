// Package server exposes the aggregated listings over HTTP.
//
// Routes:
//
//	GET  /api/events            enriched events, filtered by venue, genre, from, to, range, q
//	GET  /api/events/{id}.ics   iCalendar entry for one event
//	POST /api/run-scrapers      scrape every venue (or ?venue=id) and re-enrich
//	GET  /api/venues            the venue registry
//	GET  /healthz               liveness
//	GET  /metrics               Prometheus metrics
//
// Only one scrape run is accepted at a time; overlapping requests get 409.
package server
