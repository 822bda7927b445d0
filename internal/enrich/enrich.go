package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/genre"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/performer"
	"github.com/proprogresja/venue-events/internal/rules"
	"github.com/proprogresja/venue-events/internal/storage"
)

// Pipeline attaches venue names and genres to scraped events
type Pipeline struct {
	store      *storage.Storage
	classifier genre.Classifier
	parser     *performer.Parser
	genres     rules.Genres
	partyGenre string
	metrics    *metrics.Metrics
}

// New creates an enrichment pipeline
func New(store *storage.Storage, classifier genre.Classifier, rs *rules.Set, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: classifier,
		parser:     performer.New(rs.Names),
		genres:     rs.Genres,
		partyGenre: rs.Names.PartyGenre,
		metrics:    m,
	}
}

// Enrich flattens results into date-ordered enriched events and writes the enriched cache.
// Each distinct headliner is classified once.
func (p *Pipeline) Enrich(ctx context.Context, results []*event.ScraperResult) []*event.EnrichedEvent {
	start := time.Now()

	venueNames := make(map[string]string, len(results))
	for _, res := range results {
		venueNames[res.VenueID] = res.Venue
	}

	events := event.Flatten(results)
	event.SortByDate(events)

	lookups := make(map[string]genre.GenreInfo)
	enriched := make([]*event.EnrichedEvent, 0, len(events))

	interrupted := false
	for _, e := range events {
		if ctx.Err() != nil && !interrupted {
			interrupted = true
			logger.Warn("Enrichment interrupted, remaining events get no genre", logger.Fields{
				"done":  len(enriched),
				"total": len(events),
			})
		}
		info := p.classify(ctx, e, lookups)

		others := info.OtherGenres
		if others == nil {
			others = []string{}
		}
		enriched = append(enriched, &event.EnrichedEvent{
			ScrapedEvent: *e,
			VenueName:    venueNames[e.VenueID],
			PrimaryGenre: info.PrimaryGenre,
			OtherGenres:  others,
			Style:        info.Style,
		})
	}

	// a partial run must not pass the staleness check later
	if interrupted || ctx.Err() != nil {
		logger.Warn("Enriched events not cached after interruption", logger.Fields{"events": len(enriched)})
	} else if p.store != nil {
		if err := p.store.SaveEnriched(enriched); err != nil {
			logger.Warn("Could not write enriched events", logger.Fields{"error": err.Error()})
		}
	}
	p.metrics.SetEnrichedEvents(len(enriched))

	logger.Info("Enriched events", logger.Fields{
		"events":     len(enriched),
		"headliners": len(lookups),
		"duration":   time.Since(start).String(),
	})
	return enriched
}

// classify resolves the genre of one event, reusing lookups for repeated headliners
func (p *Pipeline) classify(ctx context.Context, e *event.ScrapedEvent, lookups map[string]genre.GenreInfo) genre.GenreInfo {
	if len(e.Performers) == 0 && p.parser.IsParty(e.Name) {
		return genre.GenreInfo{PrimaryGenre: p.partyGenre, OtherGenres: []string{}, Source: genre.SourceDefault}
	}

	headliner := strings.TrimSpace(e.Headliner())
	if headliner == "" || ctx.Err() != nil {
		return genre.DefaultInfo()
	}

	info, ok := lookups[headliner]
	if !ok {
		info = p.classifier.Classify(ctx, headliner, e.Name+" "+e.Description)
		lookups[headliner] = info
	}

	// tags printed on the venue page beat an unknown
	if info.IsDefault() && len(e.Genre) > 0 {
		tags := &genre.GenreInfo{PrimaryGenre: e.Genre[0], OtherGenres: e.Genre[1:], Source: genre.SourceVenue}
		return genre.Merge(p.genres, tags)
	}
	return info
}

// GetEnrichedEvents returns the enriched events for the latest snapshot together with
// the snapshot time. The enriched cache is reused when it covers exactly the snapshot's
// event IDs; otherwise enrichment runs again.
func (p *Pipeline) GetEnrichedEvents(ctx context.Context) ([]*event.EnrichedEvent, time.Time, error) {
	snapshot, err := p.store.LatestSnapshot()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading latest snapshot: %w", err)
	}

	cached, err := p.store.LoadEnriched()
	if err != nil {
		logger.Warn("Enriched events cache unreadable, re-enriching", logger.Fields{"error": err.Error()})
		cached = nil
	}

	if cached != nil && event.SameIDSet(event.IDSet(snapshot.Events()), event.EnrichedIDSet(cached)) {
		return cached, snapshot.Timestamp, nil
	}

	logger.Info("Enriched cache is stale, re-enriching", logger.Fields{"snapshot": snapshot.Path})
	return p.Enrich(ctx, snapshot.Results), snapshot.Timestamp, nil
}
