package scraper

import (
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/performer"
)

// Pipeline turns raw candidates into deduplicated ScrapedEvents
type Pipeline struct {
	parser *performer.Parser
	now    func() time.Time
}

// NewPipeline creates a pipeline. A nil now uses time.Now.
func NewPipeline(parser *performer.Parser, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{parser: parser, now: now}
}

// Now returns the pipeline's clock reading
func (p *Pipeline) Now() time.Time {
	return p.now()
}

// Parser returns the performer parser used for titles
func (p *Pipeline) Parser() *performer.Parser {
	return p.parser
}

// Process normalizes dates and performers for every candidate and removes duplicates.
// Candidates without a name are dropped.
func (p *Pipeline) Process(raws []event.RawEventCandidate) []*event.ScrapedEvent {
	now := p.now()
	events := make([]*event.ScrapedEvent, 0, len(raws))

	for _, raw := range raws {
		raw.Name = cleanText(raw.Name)
		if raw.Name == "" {
			continue
		}
		date, startTime := event.Normalize(raw.DateText, raw.TimeText, now)
		events = append(events, event.NewScrapedEvent(raw, date, startTime, p.performers(raw), now))
	}

	return event.Dedupe(events)
}

// performers resolves the billing for a candidate. Party listings have none.
func (p *Pipeline) performers(raw event.RawEventCandidate) []string {
	if p.parser.IsParty(raw.Name) {
		return []string{}
	}

	if len(raw.Performers) == 0 {
		return p.parser.Parse(raw.Name).Performers()
	}

	out := make([]string, 0, len(raw.Performers))
	seen := make(map[string]bool, len(raw.Performers))
	for _, name := range raw.Performers {
		name = p.parser.Clean(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
