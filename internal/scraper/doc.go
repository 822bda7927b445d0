// Package scraper provides page fetching and config-driven event extraction for venue calendars.
//
// Pages are fetched with a plain HTTP client or, for calendars rendered client side, a
// headless Chrome instance. Event nodes are located with an ordered selector cascade and
// each field is read through its own fallback chain. Pages with no recognizable containers
// are scanned for date-like text instead. Candidates then pass through the date normalizer,
// the performer parser, and the deduplicator before they become ScrapedEvents.
package scraper
