package event

import (
	"sort"
	"strings"
	"unicode"
)

// NormalizeName lowercases a show name and reduces it to letters, digits, and single spaces
func NormalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// dedupeKey identifies a show by normalized name and date
func dedupeKey(e *ScrapedEvent) string {
	return NormalizeName(e.Name) + "|" + e.Date.String()
}

// Dedupe collapses events that share a normalized name and date.
// The first occurrence wins and the relative order of survivors is preserved.
func Dedupe(events []*ScrapedEvent) []*ScrapedEvent {
	seen := make(map[string]bool, len(events))
	unique := make([]*ScrapedEvent, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		key := dedupeKey(evt)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, evt)
	}
	return unique
}

// SortByDate orders events by date ascending, then venue, then name.
// The sort is stable so equal events keep their scrape order.
func SortByDate(events []*ScrapedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date.Time) {
			return events[i].Date.Before(events[j].Date.Time)
		}
		if events[i].VenueID != events[j].VenueID {
			return events[i].VenueID < events[j].VenueID
		}
		return strings.ToLower(events[i].Name) < strings.ToLower(events[j].Name)
	})
}

// IDSet returns the set of event IDs
func IDSet(events []*ScrapedEvent) map[string]struct{} {
	set := make(map[string]struct{}, len(events))
	for _, e := range events {
		set[e.ID] = struct{}{}
	}
	return set
}

// SameIDSet reports whether two ID sets have the same size and members
func SameIDSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// EnrichedIDSet returns the set of IDs of enriched events
func EnrichedIDSet(events []*EnrichedEvent) map[string]struct{} {
	set := make(map[string]struct{}, len(events))
	for _, e := range events {
		set[e.ID] = struct{}{}
	}
	return set
}
