// Package enrich turns scrape snapshots into display-ready events.
//
// Enrichment attaches the venue name and the headliner's genre to every
// event. Results are cached in enriched-events.json and reused while the
// latest snapshot holds the same set of event IDs.
package enrich
