package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

// DefaultDuration is the assumed length of a show
const DefaultDuration = 3 * time.Hour

// GenerateICS generates an iCalendar (.ics) file for an event.
// Shows with a start time use floating local times; shows without one become all-day entries.
func GenerateICS(evt *event.EnrichedEvent, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//Venue Events//venue-events//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@venue-events\r\n", evt.ID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", now.UTC().Format("20060102T150405Z")))

	if start, ok := startTime(evt); ok {
		ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatLocal(start)))
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatLocal(start.Add(DefaultDuration))))
	} else {
		day := evt.Date.Time
		ics.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", day.Format("20060102")))
		ics.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", day.AddDate(0, 0, 1).Format("20060102")))
	}

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(evt.Name)))
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description(evt))))

	location := evt.VenueName
	if location == "" {
		location = evt.VenueID
	}
	ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(location)))

	if evt.PrimaryGenre != "" {
		ics.WriteString(fmt.Sprintf("CATEGORIES:%s\r\n", escapeICS(evt.PrimaryGenre)))
	}
	if evt.SourceURL != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", evt.SourceURL))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// startTime combines the event date with its "7:30 PM" start time
func startTime(evt *event.EnrichedEvent) (time.Time, bool) {
	if evt.StartTime == "" || evt.Date.IsZero() {
		return time.Time{}, false
	}
	clock, err := time.Parse("3:04 PM", evt.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	d := evt.Date.Time
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), true
}

func description(evt *event.EnrichedEvent) string {
	var lines []string
	if len(evt.Performers) > 0 {
		lines = append(lines, "Performers: "+strings.Join(evt.Performers, ", "))
	}
	if evt.PrimaryGenre != "" && evt.PrimaryGenre != "Unknown" {
		genre := evt.PrimaryGenre
		if evt.Style != "" {
			genre += " (" + evt.Style + ")"
		}
		lines = append(lines, "Genre: "+genre)
	}
	if evt.Description != "" {
		lines = append(lines, "", evt.Description)
	}
	if evt.SourceURL != "" {
		lines = append(lines, "", "Details: "+evt.SourceURL)
	}
	return strings.Join(lines, "\n")
}

// formatLocal formats a floating (zone-less) iCalendar datetime
func formatLocal(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
