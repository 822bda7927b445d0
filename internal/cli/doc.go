// Package cli implements the command-line interface for venue-events.
//
// The cli package provides the Cobra-based CLI: scraping venues into snapshots,
// enriching them with genres, listing events (text/JSON, sorted by date/venue/title),
// genre lookups, iCalendar export, and the HTTP server. It loads configuration once
// per command and wires the scraper, orchestrator, genre, enrich, and storage packages.
package cli
