package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/proprogresja/venue-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByVenue SortOrder = "venue"
	SortByTitle SortOrder = "title"
)

// parseSortOrder validates a --sort value
func parseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortByDate, SortByVenue, SortByTitle:
		return order, nil
	case "":
		return SortByDate, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (must be 'date', 'venue' or 'title')", s)
	}
}

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(events []*event.EnrichedEvent, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByVenue:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].VenueName != events[j].VenueName {
				return events[i].VenueName < events[j].VenueName
			}
			// If venues are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Name), strings.ToLower(events[j].Name)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate orders by calendar date, then start time, then title.
// Events without a date go last.
func compareByDate(i, j *event.EnrichedEvent) bool {
	if i.Date.IsZero() != j.Date.IsZero() {
		return !i.Date.IsZero()
	}
	if !i.Date.Equal(j.Date.Time) {
		return i.Date.Before(j.Date.Time)
	}
	if mi, mj := minutes(i.StartTime), minutes(j.StartTime); mi != mj {
		return mi < mj
	}
	return strings.ToLower(i.Name) < strings.ToLower(j.Name)
}

// minutes converts "7:30 PM" to minutes after midnight, shows without a time sort last
func minutes(startTime string) int {
	var h, m int
	var ampm string
	if _, err := fmt.Sscanf(startTime, "%d:%d %s", &h, &m, &ampm); err != nil {
		return 24 * 60
	}
	h %= 12
	if strings.EqualFold(ampm, "PM") {
		h += 12
	}
	return h*60 + m
}
