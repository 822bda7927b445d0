package scraper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/rules"
)

// DefaultStaticWeeks is how many occurrences a weekly static event produces
const DefaultStaticWeeks = 4

// Hooks let a venue adjust the generic extraction
type Hooks struct {
	// PreProcess may rewrite the document before extraction
	PreProcess func(doc *goquery.Document)
	// Custom replaces the selector cascade. Returning no candidates falls back to the cascade.
	Custom func(doc *goquery.Document, pageURL string) []event.RawEventCandidate
	// PostCandidate may edit a candidate; returning false drops it
	PostCandidate func(c *event.RawEventCandidate) bool
}

// Venue is an Extractor driven by a registry entry
type Venue struct {
	cfg      rules.VenueConfig
	fetcher  Fetcher
	pipeline *Pipeline
	hooks    Hooks
}

// NewVenue creates an extractor for cfg
func NewVenue(cfg rules.VenueConfig, fetcher Fetcher, pipeline *Pipeline, hooks Hooks) *Venue {
	return &Venue{
		cfg:      cfg,
		fetcher:  fetcher,
		pipeline: pipeline,
		hooks:    hooks,
	}
}

// ID returns the registry identifier
func (v *Venue) ID() string { return v.cfg.ID }

// Name returns the display name
func (v *Venue) Name() string { return v.cfg.Name }

// Scrape fetches and extracts the venue's calendar
func (v *Venue) Scrape(ctx context.Context) *event.ScraperResult {
	now := v.pipeline.Now()
	result := &event.ScraperResult{
		Venue:     v.cfg.Name,
		VenueID:   v.cfg.ID,
		Events:    []*event.ScrapedEvent{},
		ScrapedAt: now.UTC(),
	}

	if v.cfg.Mode == rules.ModeStatic {
		result.Events = v.pipeline.Process(StaticCandidates(v.cfg, now))
		result.Success = true
		return result
	}

	candidates, err := v.fetchCandidates(ctx)
	switch {
	case err != nil:
		result.Error = err.Error()
		if v.cfg.Mode == rules.ModeLiveWithFallback {
			result.Events = v.pipeline.Process(StaticCandidates(v.cfg, now))
			logger.Warn("Live extraction failed, using static events", logger.Fields{
				"venue":  v.cfg.ID,
				"events": len(result.Events),
				"error":  err.Error(),
			})
		}
		return result
	case len(candidates) == 0 && v.cfg.Mode == rules.ModeLiveWithFallback:
		candidates = StaticCandidates(v.cfg, now)
	}

	result.Events = v.pipeline.Process(candidates)
	result.Success = true
	return result
}

func (v *Venue) fetchCandidates(ctx context.Context) ([]event.RawEventCandidate, error) {
	body, err := v.fetcher.Fetch(ctx, v.cfg.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return v.Extract(body)
}

// Extract parses markup into raw candidates
func (v *Venue) Extract(r io.Reader) ([]event.RawEventCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	if v.hooks.PreProcess != nil {
		v.hooks.PreProcess(doc)
	}

	var raws []event.RawEventCandidate
	if v.hooks.Custom != nil {
		raws = v.hooks.Custom(doc, v.cfg.URL)
	}

	if len(raws) == 0 {
		containers, selector := SelectorCascade(v.cfg.Containers).Find(doc.Selection)
		if containers == nil {
			raws = ScanFallback(doc)
			logger.Debug("No container selector matched, scanned page text", logger.Fields{
				"venue":      v.cfg.ID,
				"candidates": len(raws),
			})
		} else {
			containers.Each(func(_ int, s *goquery.Selection) {
				raws = append(raws, v.candidate(s))
			})
			logger.Debug("Container selector matched", logger.Fields{
				"venue":    v.cfg.ID,
				"selector": selector,
				"nodes":    containers.Length(),
			})
		}
	}

	out := make([]event.RawEventCandidate, 0, len(raws))
	for _, c := range raws {
		c.VenueID = v.cfg.ID
		c.SourceURL = resolveURL(v.cfg.URL, c.SourceURL)
		if v.hooks.PostCandidate != nil && !v.hooks.PostCandidate(&c) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// candidate reads every configured field from one container node
func (v *Venue) candidate(s *goquery.Selection) event.RawEventCandidate {
	f := v.cfg.Fields
	return event.RawEventCandidate{
		Name:        FieldChain(f.Name).Value(s),
		DateText:    FieldChain(f.Date).Value(s),
		TimeText:    FieldChain(f.Time).Value(s),
		Description: FieldChain(f.Description).Value(s),
		SourceURL:   FieldChain(f.URL).Value(s),
		Performers:  FieldChain(f.Performers).Values(s),
		Genres:      FieldChain(f.Genres).Values(s),
	}
}

// StaticCandidates expands a venue's placeholder events relative to now
func StaticCandidates(cfg rules.VenueConfig, now time.Time) []event.RawEventCandidate {
	var out []event.RawEventCandidate

	for _, se := range cfg.StaticEvents {
		base := event.RawEventCandidate{
			Name:        se.Name,
			TimeText:    se.Time,
			Description: se.Description,
			SourceURL:   se.URL,
			VenueID:     cfg.ID,
			Performers:  se.Performers,
		}
		if base.SourceURL == "" {
			base.SourceURL = cfg.URL
		}

		weekday, ok := parseWeekday(se.Weekday)
		if !ok {
			base.DateText = se.Date
			out = append(out, base)
			continue
		}

		weeks := se.Weeks
		if weeks <= 0 {
			weeks = DefaultStaticWeeks
		}
		first := nextWeekday(now, weekday)
		for i := 0; i < weeks; i++ {
			c := base
			c.DateText = first.AddDate(0, 0, 7*i).Format(event.DateLayout)
			out = append(out, c)
		}
	}

	return out
}

// nextWeekday returns the first day on or after now's date that falls on wd
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	today := event.NewCalendarDate(now).Time
	offset := (int(wd) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, offset)
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	days := map[string]time.Weekday{
		"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
		"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
		"sat": time.Saturday,
	}
	wd, ok := days[s[:3]]
	return wd, ok
}

// resolveURL makes href absolute against the venue page
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return base
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}
