package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/scraper"
)

type fakeExtractor struct {
	id    string
	calls int32
	fn    func(ctx context.Context, call int) *event.ScraperResult
}

func (f *fakeExtractor) ID() string   { return f.id }
func (f *fakeExtractor) Name() string { return "Venue " + f.id }

func (f *fakeExtractor) Scrape(ctx context.Context) *event.ScraperResult {
	call := int(atomic.AddInt32(&f.calls, 1))
	return f.fn(ctx, call)
}

func okResult(id string, n int) *event.ScraperResult {
	events := make([]*event.ScrapedEvent, n)
	for i := range events {
		events[i] = &event.ScrapedEvent{ID: fmt.Sprintf("%s-%d", id, i), Name: fmt.Sprintf("Show %d", i), VenueID: id}
	}
	return &event.ScraperResult{Venue: "Venue " + id, VenueID: id, Events: events, Success: true}
}

func failResult(id, msg string) *event.ScraperResult {
	return &event.ScraperResult{Venue: "Venue " + id, VenueID: id, Events: []*event.ScrapedEvent{}, Error: msg}
}

func succeeding(id string, n int) *fakeExtractor {
	return &fakeExtractor{id: id, fn: func(context.Context, int) *event.ScraperResult { return okResult(id, n) }}
}

func failing(id string) *fakeExtractor {
	return &fakeExtractor{id: id, fn: func(context.Context, int) *event.ScraperResult { return failResult(id, "boom") }}
}

// sleepRecorder records requested waits without waiting
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func TestRun_OrderAndIsolation(t *testing.T) {
	a, b, c := succeeding("a", 2), failing("b"), succeeding("c", 1)
	sleeps := &sleepRecorder{}
	runner := New([]scraper.Extractor{a, b, c}, Options{
		Retries: 2,
		Backoff: 10 * time.Millisecond,
		Delay:   time.Second,
		Sleep:   sleeps.Sleep,
	})

	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].VenueID)
	assert.Equal(t, "b", results[1].VenueID)
	assert.Equal(t, "c", results[2].VenueID)

	assert.True(t, results[0].Success)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Len(t, results[0].Events, 2)

	assert.False(t, results[1].Success)
	assert.Equal(t, "boom", results[1].Error)
	assert.Equal(t, 3, results[1].Attempts)
	assert.EqualValues(t, 3, atomic.LoadInt32(&b.calls))

	assert.True(t, results[2].Success)

	// venue delay, two backoffs for b, venue delay
	assert.Equal(t, []time.Duration{
		time.Second,
		10 * time.Millisecond, 20 * time.Millisecond,
		time.Second,
	}, sleeps.delays)
}

func TestRun_RetryRecovers(t *testing.T) {
	flaky := &fakeExtractor{id: "flaky", fn: func(_ context.Context, call int) *event.ScraperResult {
		if call == 1 {
			return failResult("flaky", "temporary")
		}
		return okResult("flaky", 3)
	}}
	runner := New([]scraper.Extractor{flaky}, Options{Retries: 2, Sleep: (&sleepRecorder{}).Sleep})

	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].Attempts)
	assert.Empty(t, results[0].Error)
	assert.Len(t, results[0].Events, 3)
}

func TestRun_PanicRecovered(t *testing.T) {
	bad := &fakeExtractor{id: "bad", fn: func(context.Context, int) *event.ScraperResult {
		panic("selector exploded")
	}}
	nilResult := &fakeExtractor{id: "nil", fn: func(context.Context, int) *event.ScraperResult { return nil }}
	runner := New([]scraper.Extractor{bad, nilResult, succeeding("ok", 1)}, Options{Sleep: (&sleepRecorder{}).Sleep})

	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "selector exploded")
	assert.Equal(t, "bad", results[0].VenueID)
	assert.Equal(t, "Venue bad", results[0].Venue)
	assert.NotNil(t, results[0].Events)

	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
}

func TestRun_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stuck := &fakeExtractor{id: "stuck", fn: func(context.Context, int) *event.ScraperResult {
		<-release
		return okResult("stuck", 1)
	}}
	runner := New([]scraper.Extractor{stuck}, Options{Timeout: 20 * time.Millisecond})

	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "timed out")
}

func TestRun_ConcurrentKeepsRegistryOrder(t *testing.T) {
	var (
		running int32
		peak    int32
	)
	var extractors []scraper.Extractor
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("v%d", i)
		// earlier venues take longer so completion order is reversed
		wait := time.Duration(8-i) * 5 * time.Millisecond
		extractors = append(extractors, &fakeExtractor{id: id, fn: func(context.Context, int) *event.ScraperResult {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(wait)
			atomic.AddInt32(&running, -1)
			return okResult(id, 1)
		}})
	}

	runner := New(extractors, Options{Concurrency: 3})
	results, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 8)

	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("v%d", i), res.VenueID)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := New([]scraper.Extractor{succeeding("a", 1)}, Options{})
	results, err := runner.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, results)
}

func TestRunVenue(t *testing.T) {
	a, b := succeeding("a", 1), succeeding("b", 4)
	runner := New([]scraper.Extractor{a, b}, Options{})

	res, err := runner.RunVenue(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "b", res.VenueID)
	assert.Len(t, res.Events, 4)
	assert.EqualValues(t, 0, atomic.LoadInt32(&a.calls))

	_, err = runner.RunVenue(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownVenue)
}

func TestRun_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	runner := New([]scraper.Extractor{succeeding("a", 2), failing("b")}, Options{
		Metrics: m,
		Sleep:   (&sleepRecorder{}).Sleep,
	})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["venue_events_scrape_results_total"])
	assert.True(t, names["venue_events_scrape_events"])
	assert.True(t, names["venue_events_scrape_duration_seconds"])
}

func TestCarryForward(t *testing.T) {
	stale := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	prev := []*event.ScraperResult{
		okResult("a", 1),
		{VenueID: "b", Success: true, Events: []*event.ScrapedEvent{{ID: "old-b", VenueID: "b", LastScraped: stale}}},
	}
	cur := []*event.ScraperResult{
		failResult("a", "down"),
		failResult("b", "down"),
		failResult("c", "down"),
		okResult("d", 0),
	}

	out := CarryForward(prev, cur)
	require.Len(t, out, 4)

	assert.False(t, out[0].Success)
	assert.Len(t, out[0].Events, 1)

	require.Len(t, out[1].Events, 1)
	assert.Equal(t, "old-b", out[1].Events[0].ID)
	assert.Equal(t, stale, out[1].Events[0].LastScraped)
	assert.False(t, out[1].Success)

	assert.Empty(t, out[2].Events)
	assert.True(t, out[3].Success)
	assert.Empty(t, out[3].Events)
}

func TestRetryConfig_Do(t *testing.T) {
	sleeps := &sleepRecorder{}
	retry := &RetryConfig{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, Sleep: sleeps.Sleep}

	attempts, err := retry.Do(context.Background(), "op", func(int) error { return errors.New("nope") })
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "op failed after 3 attempts")
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, sleeps.delays)

	attempts, err = retry.Do(context.Background(), "op", func(attempt int) error {
		if attempt < 2 {
			return errors.New("once")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryConfig_DoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retry := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour}
	attempts, err := retry.Do(ctx, "op", func(int) error { return errors.New("nope") })
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestWorkerPoolRateLimit(t *testing.T) {
	interval := 50 * time.Millisecond
	pool := NewWorkerPool(1, interval)

	var (
		mu         sync.Mutex
		timestamps []time.Time
	)
	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	require.Len(t, timestamps, 3)
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, interval, "gap between job %d and %d", i-1, i)
	}
}
