package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/scraper"
)

// Defaults for Options fields left at zero
const (
	DefaultTimeout = 60 * time.Second
	DefaultRetries = 2
	DefaultDelay   = 2 * time.Second
	DefaultBackoff = 5 * time.Second
)

// ErrUnknownVenue is returned by RunVenue for an id that is not in the registry
var ErrUnknownVenue = errors.New("unknown venue")

// Options controls how venues are scraped
type Options struct {
	// Timeout bounds a single scrape attempt
	Timeout time.Duration
	// Retries is the number of extra attempts after a failure
	Retries int
	// Backoff is the wait before the first retry, doubled for each further one
	Backoff time.Duration
	// Delay is the courtesy pause between venues
	Delay time.Duration
	// Concurrency above 1 scrapes venues in parallel, Delay becomes the start interval
	Concurrency int
	Metrics     *metrics.Metrics
	// Sleep replaces the context-aware wait, for tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner scrapes every venue in the registry
type Runner struct {
	extractors []scraper.Extractor
	opts       Options
}

// New creates a Runner. Extractors are scraped and reported in the given order.
func New(extractors []scraper.Extractor, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Runner{extractors: extractors, opts: opts}
}

// Run scrapes all venues. A venue failure never aborts the run; the returned error
// is non-nil only when ctx ends first, together with the results gathered so far.
func (r *Runner) Run(ctx context.Context) ([]*event.ScraperResult, error) {
	start := time.Now()
	logger.Info("Starting scrape run", logger.Fields{
		"venues":      len(r.extractors),
		"concurrency": r.opts.Concurrency,
	})

	var (
		results []*event.ScraperResult
		err     error
	)
	if r.opts.Concurrency > 1 {
		results, err = r.runPool(ctx)
	} else {
		results, err = r.runSequential(ctx)
	}

	failed := 0
	total := 0
	for _, res := range results {
		total += len(res.Events)
		if !res.Success {
			failed++
		}
	}
	logger.Info("Scrape run finished", logger.Fields{
		"venues":   len(results),
		"failed":   failed,
		"events":   total,
		"duration": time.Since(start).String(),
	})

	return results, err
}

func (r *Runner) runSequential(ctx context.Context) ([]*event.ScraperResult, error) {
	results := make([]*event.ScraperResult, 0, len(r.extractors))

	for i, x := range r.extractors {
		if i > 0 && r.opts.Delay > 0 {
			if err := r.opts.Sleep(ctx, r.opts.Delay); err != nil {
				return results, fmt.Errorf("scrape run interrupted: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("scrape run interrupted: %w", err)
		}
		results = append(results, r.scrape(ctx, x))
	}

	return results, nil
}

func (r *Runner) runPool(ctx context.Context) ([]*event.ScraperResult, error) {
	slots := make([]*event.ScraperResult, len(r.extractors))
	pool := NewWorkerPool(r.opts.Concurrency, r.opts.Delay)

	for i, x := range r.extractors {
		if ctx.Err() != nil {
			break
		}
		i, x := i, x
		pool.Submit(func() {
			slots[i] = r.scrape(ctx, x)
		})
	}
	pool.Wait()

	// registry order, dropping venues never started
	results := make([]*event.ScraperResult, 0, len(slots))
	for _, res := range slots {
		if res != nil {
			results = append(results, res)
		}
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("scrape run interrupted: %w", err)
	}
	return results, nil
}

// RunVenue scrapes a single venue by id
func (r *Runner) RunVenue(ctx context.Context, id string) (*event.ScraperResult, error) {
	for _, x := range r.extractors {
		if x.ID() == id {
			return r.scrape(ctx, x), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, id)
}

// scrape runs one venue with retries and records metrics
func (r *Runner) scrape(ctx context.Context, x scraper.Extractor) *event.ScraperResult {
	start := time.Now()
	retry := &RetryConfig{
		MaxAttempts: r.opts.Retries + 1,
		BaseDelay:   r.opts.Backoff,
		Sleep:       r.opts.Sleep,
	}

	var result *event.ScraperResult
	attempts, err := retry.Do(ctx, "scrape "+x.ID(), func(int) error {
		result = r.attempt(ctx, x)
		if !result.Success {
			return errors.New(result.Error)
		}
		return nil
	})
	result.Attempts = attempts

	fields := logger.Fields{
		"venue":    x.ID(),
		"events":   len(result.Events),
		"attempts": attempts,
		"duration": time.Since(start).String(),
	}
	if err != nil {
		logger.Error("Venue scrape failed", fields, err)
	} else {
		logger.Info("Venue scraped", fields)
	}

	r.opts.Metrics.ObserveScrape(x.ID(), result.Success, len(result.Events), time.Since(start))
	return result
}

// attempt runs a single scrape under the per-task timeout. A panic or a timeout
// becomes a failed result.
func (r *Runner) attempt(ctx context.Context, x scraper.Extractor) *event.ScraperResult {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	done := make(chan *event.ScraperResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Extractor panicked", logger.Fields{"venue": x.ID()}, fmt.Errorf("%v", p))
				done <- failedResult(x, fmt.Sprintf("extractor panic: %v", p))
			}
		}()

		res := x.Scrape(ctx)
		if res == nil {
			res = failedResult(x, "extractor returned no result")
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return failedResult(x, fmt.Sprintf("scrape timed out: %v", ctx.Err()))
	}
}

func failedResult(x scraper.Extractor, msg string) *event.ScraperResult {
	return &event.ScraperResult{
		Venue:     x.Name(),
		VenueID:   x.ID(),
		Events:    []*event.ScrapedEvent{},
		Success:   false,
		Error:     msg,
		ScrapedAt: time.Now().UTC(),
	}
}

// CarryForward fills venues that failed in cur and produced no events with the
// events of the same venue from prev. Success stays false and the carried events
// keep their original LastScraped.
func CarryForward(prev, cur []*event.ScraperResult) []*event.ScraperResult {
	previous := make(map[string]*event.ScraperResult, len(prev))
	for _, res := range prev {
		if res != nil {
			previous[res.VenueID] = res
		}
	}

	for _, res := range cur {
		if res.Success || len(res.Events) > 0 {
			continue
		}
		old, ok := previous[res.VenueID]
		if !ok || len(old.Events) == 0 {
			continue
		}
		res.Events = append([]*event.ScrapedEvent(nil), old.Events...)
		logger.Warn("Carried forward previous events for failed venue", logger.Fields{
			"venue":  res.VenueID,
			"events": len(res.Events),
		})
	}
	return cur
}
