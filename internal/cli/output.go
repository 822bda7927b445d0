package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/genre"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// EventsOutput is what the events command prints
type EventsOutput struct {
	LastUpdated time.Time              `json:"lastUpdated"`
	Filter      string                 `json:"filter,omitempty"`
	Events      []*event.EnrichedEvent `json:"events"`
	Count       int                    `json:"count"`
}

// VenueSummary is one venue line of a scrape report
type VenueSummary struct {
	Venue      string `json:"venue"`
	VenueID    string `json:"venueId"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	EventCount int    `json:"eventCount"`
	Attempts   int    `json:"attempts"`
}

// ScrapeOutput is what the scrape command prints
type ScrapeOutput struct {
	ScrapedAt  time.Time             `json:"scrapedAt"`
	Snapshot   string                `json:"snapshot"`
	Venues     []VenueSummary        `json:"venues"`
	EventCount int                   `json:"eventCount"`
	NewEvents  []*event.ScrapedEvent `json:"newEvents"`
	Removed    []*event.ScrapedEvent `json:"removedEvents,omitempty"`
	Enriched   int                   `json:"enriched"`
}

// writeJSON outputs any result as indented JSON
func writeJSON(w io.Writer, result interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// WriteEvents writes an event listing in the specified format
func WriteEvents(w io.Writer, result *EventsOutput, format OutputFormat, now time.Time, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeEventsText(w, result, now, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeEventsText(w io.Writer, result *EventsOutput, now time.Time, verbose bool) error {
	if result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n\n", result.Filter)
	}
	if result.Count == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	lastDay := ""
	for _, evt := range result.Events {
		day := event.FormatDateNice(evt.Date, now)
		if day != lastDay {
			if lastDay != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s\n", day)
			lastDay = day
		}

		startTime := evt.StartTime
		if startTime == "" {
			startTime = "TBA"
		}
		fmt.Fprintf(w, "  %-8s  %s @ %s [%s]\n", startTime, evt.Name, evt.VenueName, genreLabel(evt))

		if verbose {
			fmt.Fprintf(w, "            ID: %s\n", evt.ID)
			if len(evt.Performers) > 1 {
				fmt.Fprintf(w, "            With: %s\n", strings.Join(evt.Performers[1:], ", "))
			}
			if evt.SourceURL != "" {
				fmt.Fprintf(w, "            URL: %s\n", evt.SourceURL)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events, updated %s\n", result.Count, result.LastUpdated.Local().Format("Jan 2 15:04"))
	return nil
}

func genreLabel(evt *event.EnrichedEvent) string {
	if evt.Style != "" && evt.Style != evt.PrimaryGenre {
		return evt.PrimaryGenre + " / " + evt.Style
	}
	return evt.PrimaryGenre
}

// WriteScrape writes a scrape report in the specified format
func WriteScrape(w io.Writer, result *ScrapeOutput, format OutputFormat, verbose bool) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	for _, v := range result.Venues {
		status := "ok"
		if !v.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%-28s %-6s %3d events", v.Venue, status, v.EventCount)
		if v.Error != "" {
			fmt.Fprintf(w, "  (%s)", v.Error)
		}
		if verbose && v.Attempts > 1 {
			fmt.Fprintf(w, "  after %d attempts", v.Attempts)
		}
		fmt.Fprintln(w)
	}

	if len(result.NewEvents) > 0 {
		fmt.Fprintf(w, "\nNew shows (%d):\n", len(result.NewEvents))
		for _, evt := range result.NewEvents {
			fmt.Fprintf(w, "  NEW: %s  %s (%s)\n", evt.Date.String(), evt.Name, evt.VenueID)
		}
	} else {
		fmt.Fprintln(w, "\nNo new shows since the last scrape.")
	}

	if len(result.Removed) > 0 {
		fmt.Fprintf(w, "%d shows from the previous snapshot are gone\n", len(result.Removed))
		if verbose {
			for _, evt := range result.Removed {
				fmt.Fprintf(w, "  GONE: %s  %s (%s)\n", evt.Date.String(), evt.Name, evt.VenueID)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events across %d venues\n", result.EventCount, len(result.Venues))
	if result.Snapshot == "" {
		fmt.Fprintln(w, "Single-venue run, snapshot not saved.")
	} else if verbose {
		fmt.Fprintf(w, "Snapshot: %s\n", result.Snapshot)
	}
	return nil
}

// WriteGenre writes one artist's genre lookup
func WriteGenre(w io.Writer, artist string, info genre.GenreInfo, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			Artist string `json:"artist"`
			genre.GenreInfo
		}{artist, info})
	}

	fmt.Fprintf(w, "%s: %s", artist, info.PrimaryGenre)
	if len(info.OtherGenres) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(info.OtherGenres, ", "))
	}
	if info.Style != "" {
		fmt.Fprintf(w, " style=%s", info.Style)
	}
	fmt.Fprintf(w, " [%s]\n", info.Source)
	return nil
}
