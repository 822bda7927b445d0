// Package event provides the data model for scraped live-music listings.
//
// The event package defines the raw candidate an extractor produces, the normalized
// ScrapedEvent, the per-venue ScraperResult, and the genre-enriched EnrichedEvent.
// It also holds the pieces of normalization that do not depend on a venue: the
// date/time cascade with its future-bias rule, the content hash, deduplication by
// normalized name and date, and snapshot diffing.
package event
