package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/storage"
)

// Enricher turns a finished run into enriched events
type Enricher interface {
	Enrich(ctx context.Context, results []*event.ScraperResult) []*event.EnrichedEvent
}

// Refresher runs a scrape, persists the snapshot and re-enriches it
type Refresher struct {
	Runner *Runner
	Store  *storage.Storage
	// Enricher may be nil to skip enrichment
	Enricher     Enricher
	CarryForward bool
}

// Outcome describes one refresh. SnapshotPath is empty when nothing was persisted.
// Removed lists previous shows missing from a full run.
type Outcome struct {
	Results      []*event.ScraperResult
	SnapshotPath string
	ScrapedAt    time.Time
	NewEvents    []*event.ScrapedEvent
	Removed      []*event.ScrapedEvent
	Enriched     []*event.EnrichedEvent
}

// Refresh scrapes every venue, saves the run as a new snapshot and enriches it.
// With a non-empty venueID only that venue is scraped and reported; snapshots are
// always full runs, so nothing is persisted or enriched.
func (f *Refresher) Refresh(ctx context.Context, venueID string) (*Outcome, error) {
	previous, err := f.Store.LatestSnapshot()
	if err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
		logger.Warn("Previous snapshot unreadable, diffing against nothing", logger.Fields{"error": err.Error()})
	}
	var prevResults []*event.ScraperResult
	if previous != nil {
		prevResults = previous.Results
	}

	if venueID != "" {
		res, err := f.Runner.RunVenue(ctx, venueID)
		if err != nil {
			return nil, err
		}
		results := []*event.ScraperResult{res}
		return &Outcome{
			Results:   results,
			ScrapedAt: time.Now().UTC(),
			NewEvents: event.Diff(event.Flatten(prevResults), res.Events).NewEvents,
		}, nil
	}

	results, err := f.Runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	if f.CarryForward {
		results = CarryForward(prevResults, results)
	}

	path, err := f.Store.SaveSnapshot(results)
	if err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}

	prevEvents, curEvents := event.Flatten(prevResults), event.Flatten(results)
	out := &Outcome{
		Results:      results,
		SnapshotPath: path,
		ScrapedAt:    time.Now().UTC(),
		NewEvents:    event.Diff(prevEvents, curEvents).NewEvents,
		Removed:      event.RemovedEvents(prevEvents, curEvents),
	}
	if ts, ok := storage.SnapshotTime(path); ok {
		out.ScrapedAt = ts
	}

	if f.Enricher != nil {
		out.Enriched = f.Enricher.Enrich(ctx, results)
	}
	return out, nil
}
