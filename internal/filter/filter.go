// Package filter narrows enriched event listings.
//
// Filters combine any of the following criteria, all of which must match:
//   - Date ranges (from/to dates, inclusive)
//   - Venues (venue ID or case-insensitive substring of the venue name)
//   - Genres (case-insensitive match on the primary genre, other genres or style)
//   - Free text (case-insensitive substring of the title or a performer)
//   - Weekends only (Friday/Saturday/Sunday nights)
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Genres = []string{"bluegrass"}
//	from, to, _ := filter.ParseDateRange("Aug 1-15", time.Now())
//	f.DateFrom, f.DateTo = from, to
//
//	filtered := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

// Filter represents event filtering criteria
type Filter struct {
	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Venue ID (exact) or venue name (substring)
	Venues []string `json:"venues,omitempty"`

	// Genre filtering across primary, other genres and style
	Genres []string `json:"genres,omitempty"`

	// Title or performer substring
	Query string `json:"query,omitempty"`

	// Friday, Saturday and Sunday only
	WeekendsOnly bool `json:"weekends_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all events until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Venues: []string{},
		Genres: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Venues) == 0 &&
		len(f.Genres) == 0 &&
		strings.TrimSpace(f.Query) == "" &&
		!f.WeekendsOnly
}

// Matches checks if an event matches all active filter criteria.
// An empty filter matches all events.
func (f *Filter) Matches(evt *event.EnrichedEvent) bool {
	if f.IsEmpty() {
		return true
	}

	eventDate := evt.Date.Time

	if f.DateFrom != nil && eventDate.Before(dayStart(*f.DateFrom)) {
		return false
	}

	if f.DateTo != nil && eventDate.After(*f.DateTo) {
		return false
	}

	if f.WeekendsOnly {
		switch eventDate.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
		default:
			return false
		}
	}

	if len(f.Venues) > 0 && !f.matchesVenue(evt) {
		return false
	}

	if len(f.Genres) > 0 && !f.matchesGenre(evt) {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(evt.Name), q) && !containsFold(evt.Performers, q) {
			return false
		}
	}

	return true
}

func (f *Filter) matchesVenue(evt *event.EnrichedEvent) bool {
	nameLower := strings.ToLower(evt.VenueName)
	for _, v := range f.Venues {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.EqualFold(evt.VenueID, v) || strings.Contains(nameLower, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func (f *Filter) matchesGenre(evt *event.EnrichedEvent) bool {
	tags := append([]string{evt.PrimaryGenre, evt.Style}, evt.OtherGenres...)
	for _, g := range f.Genres {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		for _, tag := range tags {
			if tag != "" && strings.EqualFold(tag, g) {
				return true
			}
		}
	}
	return false
}

// containsFold reports whether any value contains the lowercase needle
func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// Apply applies the filter to a list of events and returns only matching events.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(events []*event.EnrichedEvent) []*event.EnrichedEvent {
	if f.IsEmpty() {
		return events
	}

	filtered := []*event.EnrichedEvent{}
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Aug 1, 2025 | To: Aug 15, 2025 | Genres: Bluegrass | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Venues) > 0 {
		parts = append(parts, fmt.Sprintf("Venues: %s", strings.Join(f.Venues, ", ")))
	}

	if len(f.Genres) > 0 {
		parts = append(parts, fmt.Sprintf("Genres: %s", strings.Join(f.Genres, ", ")))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, fmt.Sprintf("Matching: %q", q))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	return strings.Join(parts, " | ")
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
