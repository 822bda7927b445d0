package event

import (
	"sort"
)

// DiffResult contains the shows that appeared since a previous snapshot
type DiffResult struct {
	NewEvents []*ScrapedEvent
	Venues    map[string][]*ScrapedEvent // new events grouped by venue ID
}

// Diff compares the current events against a previous snapshot's events by Hash.
// Event IDs are regenerated every run, so the content hash is the only stable identity.
func Diff(previous, current []*ScrapedEvent) *DiffResult {
	result := &DiffResult{
		NewEvents: make([]*ScrapedEvent, 0),
		Venues:    make(map[string][]*ScrapedEvent),
	}

	known := make(map[string]bool, len(previous))
	for _, evt := range previous {
		known[evt.Hash] = true
	}

	for _, evt := range current {
		if known[evt.Hash] {
			continue
		}
		result.NewEvents = append(result.NewEvents, evt)
		result.Venues[evt.VenueID] = append(result.Venues[evt.VenueID], evt)
	}

	// Sort new events for consistent output
	sort.SliceStable(result.NewEvents, func(i, j int) bool {
		if result.NewEvents[i].VenueID != result.NewEvents[j].VenueID {
			return result.NewEvents[i].VenueID < result.NewEvents[j].VenueID
		}
		return result.NewEvents[i].Date.Before(result.NewEvents[j].Date.Time)
	})
	for venue := range result.Venues {
		SortByDate(result.Venues[venue])
	}

	return result
}

// RemovedEvents returns the previous events whose Hash no longer appears in current
func RemovedEvents(previous, current []*ScrapedEvent) []*ScrapedEvent {
	present := make(map[string]bool, len(current))
	for _, evt := range current {
		present[evt.Hash] = true
	}
	removed := make([]*ScrapedEvent, 0)
	for _, evt := range previous {
		if !present[evt.Hash] {
			removed = append(removed, evt)
		}
	}
	return removed
}
