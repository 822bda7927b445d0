package venues

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/logger"
)

// ldEvent is the subset of a schema.org Event the extractor reads
type ldEvent struct {
	Type        json.RawMessage   `json:"@type"`
	Name        string            `json:"name"`
	StartDate   string            `json:"startDate"`
	Description string            `json:"description"`
	URL         string            `json:"url"`
	Performer   json.RawMessage   `json:"performer"`
	Graph       []json.RawMessage `json:"@graph"`
}

type ldPerson struct {
	Name string `json:"name"`
}

var ldLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ExtractJSONLD reads MusicEvent and Event entries from the page's JSON-LD blocks
func ExtractJSONLD(doc *goquery.Document, pageURL string) []event.RawEventCandidate {
	var out []event.RawEventCandidate

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var items []json.RawMessage
		raw := []byte(strings.TrimSpace(s.Text()))
		if len(raw) == 0 {
			return
		}
		if raw[0] == '[' {
			if err := json.Unmarshal(raw, &items); err != nil {
				logger.Debug("Skipping malformed JSON-LD block", logger.Fields{"page": pageURL, "error": err.Error()})
				return
			}
		} else {
			items = []json.RawMessage{raw}
		}

		for _, item := range items {
			out = append(out, ldCandidates(item)...)
		}
	})

	return out
}

func ldCandidates(raw json.RawMessage) []event.RawEventCandidate {
	var e ldEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil
	}

	var out []event.RawEventCandidate
	for _, nested := range e.Graph {
		out = append(out, ldCandidates(nested)...)
	}
	if !isEventType(e.Type) || strings.TrimSpace(e.Name) == "" {
		return out
	}

	c := event.RawEventCandidate{
		Name:        e.Name,
		DateText:    e.StartDate,
		Description: strings.TrimSpace(e.Description),
		SourceURL:   e.URL,
		Performers:  ldPerformers(e.Performer),
	}
	for _, layout := range ldLayouts {
		if t, err := time.Parse(layout, e.StartDate); err == nil {
			c.DateText = t.Format(event.DateLayout)
			if layout != "2006-01-02" {
				c.TimeText = t.Format("3:04 PM")
			}
			break
		}
	}
	return append(out, c)
}

func isEventType(raw json.RawMessage) bool {
	var types []string
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		types = []string{single}
	} else if err := json.Unmarshal(raw, &types); err != nil {
		return false
	}
	for _, t := range types {
		if t == "MusicEvent" || t == "Event" {
			return true
		}
	}
	return false
}

// ldPerformers accepts a single performer object or a list of them
func ldPerformers(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var people []ldPerson
	if err := json.Unmarshal(raw, &people); err != nil {
		var one ldPerson
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		people = []ldPerson{one}
	}

	names := make([]string, 0, len(people))
	for _, p := range people {
		if name := strings.TrimSpace(p.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
