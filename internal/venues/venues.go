package venues

import (
	"fmt"
	"regexp"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/performer"
	"github.com/proprogresja/venue-events/internal/rules"
	"github.com/proprogresja/venue-events/internal/scraper"
)

// Hook names usable in venues.yaml
const (
	HookJSONLD      = "jsonld"
	HookPresents    = "presents"
	HookURLDate     = "url-date"
	HookSkipPrivate = "skip-private"
)

// Options selects the fetchers used by the registry. Nil fields get defaults.
type Options struct {
	HTTP    scraper.Fetcher
	Browser scraper.Fetcher
}

// Build creates one extractor per registry entry, in registry order
func Build(set *rules.Set, pipeline *scraper.Pipeline, opts Options) ([]scraper.Extractor, error) {
	if opts.HTTP == nil {
		opts.HTTP = scraper.NewHTTPFetcher()
	}
	if opts.Browser == nil {
		opts.Browser = scraper.NewBrowserFetcher("")
	}

	extractors := make([]scraper.Extractor, 0, len(set.Venues))
	for _, cfg := range set.Venues {
		hooks, err := HooksFor(cfg)
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, scraper.NewVenue(cfg, fetcherFor(cfg, opts), pipeline, hooks))
	}
	return extractors, nil
}

func fetcherFor(cfg rules.VenueConfig, opts Options) scraper.Fetcher {
	if cfg.Fetch != rules.FetchBrowser {
		return opts.HTTP
	}
	if bf, ok := opts.Browser.(*scraper.BrowserFetcher); ok {
		return bf.WithWait(cfg.WaitFor, cfg.Settle)
	}
	return opts.Browser
}

// HooksFor combines the named hooks of a venue into one Hooks value
func HooksFor(cfg rules.VenueConfig) (scraper.Hooks, error) {
	var (
		hooks scraper.Hooks
		post  []func(*event.RawEventCandidate) bool
	)

	for _, name := range cfg.Hooks {
		switch name {
		case HookJSONLD:
			hooks.Custom = ExtractJSONLD
		case HookPresents:
			post = append(post, StripPresenter)
		case HookURLDate:
			post = append(post, DateFromURL)
		case HookSkipPrivate:
			post = append(post, SkipPrivate)
		default:
			return scraper.Hooks{}, fmt.Errorf("venue %s: unknown hook %q", cfg.ID, name)
		}
	}

	if len(post) > 0 {
		hooks.PostCandidate = func(c *event.RawEventCandidate) bool {
			for _, fn := range post {
				if !fn(c) {
					return false
				}
			}
			return true
		}
	}
	return hooks, nil
}

// StripPresenter removes a "Promoter presents:" prefix from the listing name
func StripPresenter(c *event.RawEventCandidate) bool {
	c.Name = performer.StripPresenter(c.Name)
	return true
}

var urlDatePattern = regexp.MustCompile(`\b(\d{2})-(\d{2})-(\d{4})\b`)

// DateFromURL prefers an MM-DD-YYYY date embedded in the event link over the listing text
func DateFromURL(c *event.RawEventCandidate) bool {
	if m := urlDatePattern.FindString(c.SourceURL); m != "" {
		c.DateText = m
	}
	return true
}

var privatePattern = regexp.MustCompile(`(?i)\b(?:private event|private party|closed|cancell?ed|postponed)\b`)

// SkipPrivate drops listings that are not public shows
func SkipPrivate(c *event.RawEventCandidate) bool {
	return !privatePattern.MatchString(c.Name)
}
