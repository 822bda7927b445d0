// Package venues builds the scrapers for every venue in the registry.
//
// Selectors, fetch strategy and static fallback events come from venues.yaml in
// internal/rules. Behavior that selectors cannot express lives here as named
// hooks: JSON-LD extraction, presenter prefix removal, dates embedded in event
// links and filtering of private or cancelled listings.
package venues
