// Package storage provides JSON-based persistence for scrape snapshots.
//
// Every scrape run is written to its own file, scrape-<timestamp>.json, holding
// the array of per-venue results. The newest file by name is the current
// snapshot. The data directory also holds the enriched events cache
// (enriched-events.json) and the genre cache (genre-cache.json).
package storage
