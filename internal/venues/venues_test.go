package venues

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/performer"
	"github.com/proprogresja/venue-events/internal/rules"
	"github.com/proprogresja/venue-events/internal/scraper"
)

var referenceNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fixtureFetcher serves testdata/<venue-id>.html for each registry URL
type fixtureFetcher map[string]string

func (f fixtureFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	name, ok := f[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return os.Open(filepath.Join("testdata", name))
}

func newFixtureFetcher(set *rules.Set) fixtureFetcher {
	f := fixtureFetcher{}
	for _, v := range set.Venues {
		f[v.URL] = v.ID + ".html"
	}
	return f
}

func buildDefault(t *testing.T) map[string]scraper.Extractor {
	t.Helper()
	set := rules.Default()
	fetcher := newFixtureFetcher(set)
	pipeline := scraper.NewPipeline(performer.New(set.Names), func() time.Time { return referenceNow })

	extractors, err := Build(set, pipeline, Options{HTTP: fetcher, Browser: fetcher})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	byID := make(map[string]scraper.Extractor, len(extractors))
	for _, x := range extractors {
		byID[x.ID()] = x
	}
	return byID
}

func findEvent(events []*event.ScrapedEvent, name string) *event.ScrapedEvent {
	for _, e := range events {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func TestBuild_RegistryOrder(t *testing.T) {
	set := rules.Default()
	extractors, err := Build(set, scraper.NewPipeline(performer.New(set.Names), nil), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(extractors) != len(set.Venues) {
		t.Fatalf("got %d extractors, want %d", len(extractors), len(set.Venues))
	}
	for i, x := range extractors {
		if x.ID() != set.Venues[i].ID {
			t.Errorf("extractor %d = %s, want %s", i, x.ID(), set.Venues[i].ID)
		}
		if x.Name() != set.Venues[i].Name {
			t.Errorf("extractor %d name = %s, want %s", i, x.Name(), set.Venues[i].Name)
		}
	}
}

func TestBuild_UnknownHook(t *testing.T) {
	set := &rules.Set{Venues: []rules.VenueConfig{{ID: "x", Name: "X", URL: "https://x.example.com", Hooks: []string{"nope"}}}}
	_, err := Build(set, scraper.NewPipeline(performer.New(rules.Names{}), nil), Options{})
	if err == nil || !strings.Contains(err.Error(), `unknown hook "nope"`) {
		t.Errorf("Build() error = %v, want unknown hook", err)
	}
}

func TestFetcherFor(t *testing.T) {
	set := rules.Default()
	opts := Options{HTTP: scraper.NewHTTPFetcher(), Browser: scraper.NewBrowserFetcher("/usr/bin/chromium")}

	broadberry, _ := set.Venue("the-broadberry")
	bf, ok := fetcherFor(broadberry, opts).(*scraper.BrowserFetcher)
	if !ok {
		t.Fatalf("the-broadberry fetcher is %T, want *scraper.BrowserFetcher", fetcherFor(broadberry, opts))
	}
	if bf.WaitFor != "#eventsList" || bf.Settle != 3*time.Second {
		t.Errorf("browser wait = %q/%v, want #eventsList/3s", bf.WaitFor, bf.Settle)
	}
	if bf.ChromeBin != "/usr/bin/chromium" {
		t.Errorf("ChromeBin = %q", bf.ChromeBin)
	}

	camel, _ := set.Venue("the-camel")
	if _, ok := fetcherFor(camel, opts).(*scraper.HTTPFetcher); !ok {
		t.Errorf("the-camel fetcher is %T, want *scraper.HTTPFetcher", fetcherFor(camel, opts))
	}
}

func TestVenueFixtures(t *testing.T) {
	extractors := buildDefault(t)

	tests := []struct {
		venue      string
		wantCount  int
		name       string
		date       string
		startTime  string
		url        string
		performers []string
	}{
		{
			venue: "the-camel", wantCount: 1,
			name: "Built to Spill", date: "2025-08-20", startTime: "7:00 PM",
			url:        "https://www.thecamel.org/tm-event/built-to-spill",
			performers: []string{"Built to Spill"},
		},
		{
			venue: "the-national", wantCount: 2,
			name: "Khruangbin with Men I Trust", date: "2025-09-18", startTime: "8:00 PM",
			url:        "https://www.thenationalva.com/shows/khruangbin",
			performers: []string{"Khruangbin", "Men I Trust"},
		},
		{
			venue: "the-national", wantCount: 2,
			name: "Waxahatchee", date: "2025-10-02", startTime: "7:30 PM",
			url:        "https://www.thenationalva.com/shows",
			performers: []string{"Waxahatchee"},
		},
		{
			venue: "richmond-music-hall", wantCount: 1,
			name: "Lucero with Jade Bird", date: "2025-08-09", startTime: "8:00 PM",
			url:        "https://www.richmondmusichall.com/events/lucero",
			performers: []string{"Lucero", "Jade Bird"},
		},
		{
			venue: "canal-club", wantCount: 2,
			name: "GWAR", date: "2025-10-31", startTime: "6:30 PM",
			url:        "https://www.thecanalclub.com/events/gwar-10-31-2025",
			performers: []string{"GWAR"},
		},
		{
			venue: "canal-club", wantCount: 2,
			name: "Mdou Moctar", date: "2025-09-05", startTime: "8:00 PM",
			url:        "https://www.thecanalclub.com/events/mdou-moctar-09-05-2025",
			performers: []string{"Mdou Moctar"},
		},
		{
			venue: "the-tin-pan", wantCount: 1,
			name: "An Evening with Leftover Salmon", date: "2025-07-24", startTime: "6:00 PM",
			url:        "https://tix.example.com/leftover-salmon",
			performers: []string{"Leftover Salmon", "Larry Keel"},
		},
		{
			venue: "the-hof", wantCount: 2,
			name: "Sunday Jazz Brunch Trio", date: "2025-06-22", startTime: "11:00 AM",
			url: "https://www.thehofrva.com/music",
		},
		{
			venue: "the-hof", wantCount: 2,
			name: "The Southern Belles", date: "2025-07-05", startTime: "9:00 PM",
			url: "https://www.thehofrva.com/music/southern-belles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.venue+"/"+tt.name, func(t *testing.T) {
			result := extractors[tt.venue].Scrape(context.Background())
			if !result.Success {
				t.Fatalf("Scrape() failed: %s", result.Error)
			}
			if len(result.Events) != tt.wantCount {
				t.Fatalf("got %d events, want %d", len(result.Events), tt.wantCount)
			}

			e := findEvent(result.Events, tt.name)
			if e == nil {
				t.Fatalf("event %q not found", tt.name)
			}
			if e.Date.String() != tt.date {
				t.Errorf("Date = %s, want %s", e.Date, tt.date)
			}
			if e.StartTime != tt.startTime {
				t.Errorf("StartTime = %q, want %q", e.StartTime, tt.startTime)
			}
			if e.SourceURL != tt.url {
				t.Errorf("SourceURL = %q, want %q", e.SourceURL, tt.url)
			}
			if e.VenueID != tt.venue {
				t.Errorf("VenueID = %q, want %q", e.VenueID, tt.venue)
			}
			if tt.performers != nil && !reflect.DeepEqual(e.Performers, tt.performers) {
				t.Errorf("Performers = %v, want %v", e.Performers, tt.performers)
			}
		})
	}
}

func TestVenueFixtures_CamelGenreTags(t *testing.T) {
	result := buildDefault(t)["the-camel"].Scrape(context.Background())
	if len(result.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(result.Events))
	}
	if got := result.Events[0].Genre; !reflect.DeepEqual(got, []string{"Indie Rock"}) {
		t.Errorf("Genre = %v, want [Indie Rock]", got)
	}
}

func TestStaticVenues(t *testing.T) {
	extractors := buildDefault(t)

	for _, id := range []string{"fuzzy-cactus", "wonderland"} {
		result := extractors[id].Scrape(context.Background())
		if !result.Success {
			t.Errorf("%s: Success = false", id)
		}
		// two weekly events, four weeks each
		if len(result.Events) != 8 {
			t.Errorf("%s: got %d events, want 8", id, len(result.Events))
		}
		for _, e := range result.Events {
			if e.Date.Before(event.NewCalendarDate(referenceNow).Time) {
				t.Errorf("%s: static event %q dated %s is in the past", id, e.Name, e.Date)
			}
		}
	}
}

func TestCaryStreetFallback(t *testing.T) {
	// no fixture exists for the cafe, so the live fetch fails
	result := buildDefault(t)["cary-street-cafe"].Scrape(context.Background())
	if result.Success {
		t.Error("Success = true, want false after a failed fetch")
	}
	if result.Error == "" {
		t.Error("Error is empty")
	}
	if len(result.Events) != 8 {
		t.Errorf("got %d fallback events, want 8", len(result.Events))
	}
}

func TestExtractJSONLD(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{not json</script>
<script type="application/ld+json">{"@type":"MusicEvent","name":"Alvvays","startDate":"2025-11-01","performer":{"name":"Alvvays"}}</script>
<script type="application/ld+json">{"@type":"Place","name":"Somewhere"}</script>
<script type="application/ld+json">{"@type":"Event","name":"  ","startDate":"2025-11-02"}</script>
</head><body></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}

	got := ExtractJSONLD(doc, "https://example.com")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
	}
	c := got[0]
	if c.Name != "Alvvays" || c.DateText != "2025-11-01" || c.TimeText != "" {
		t.Errorf("candidate = %+v", c)
	}
	if !reflect.DeepEqual(c.Performers, []string{"Alvvays"}) {
		t.Errorf("Performers = %v", c.Performers)
	}
}

func TestStripPresenter(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Richmond Music Hall presents: Lucero", "Lucero"},
		{"WRIR Presents Big Thief", "Big Thief"},
		{"Lucero", "Lucero"},
		{"presents", "presents"},
	}
	for _, tt := range tests {
		c := event.RawEventCandidate{Name: tt.in}
		if !StripPresenter(&c) {
			t.Errorf("StripPresenter(%q) dropped the candidate", tt.in)
		}
		if c.Name != tt.want {
			t.Errorf("StripPresenter(%q) = %q, want %q", tt.in, c.Name, tt.want)
		}
	}
}

func TestDateFromURL(t *testing.T) {
	tests := []struct{ url, text, want string }{
		{"https://x.example.com/events/gwar-10-31-2025", "Friday", "10-31-2025"},
		{"https://x.example.com/events/gwar", "Oct 31", "Oct 31"},
		{"https://x.example.com/events/2025-10-31", "Oct 31", "Oct 31"},
	}
	for _, tt := range tests {
		c := event.RawEventCandidate{SourceURL: tt.url, DateText: tt.text}
		DateFromURL(&c)
		if c.DateText != tt.want {
			t.Errorf("DateFromURL(%q) DateText = %q, want %q", tt.url, c.DateText, tt.want)
		}
	}
}

func TestSkipPrivate(t *testing.T) {
	tests := []struct {
		name string
		keep bool
	}{
		{"Private Event", false},
		{"CLOSED for Staff Party", false},
		{"CANCELLED: Band Name", false},
		{"Canceled - Band Name", false},
		{"Show Postponed", false},
		{"Closer", true},
		{"The Enclosed Space", true},
		{"Built to Spill", true},
	}
	for _, tt := range tests {
		c := event.RawEventCandidate{Name: tt.name}
		if got := SkipPrivate(&c); got != tt.keep {
			t.Errorf("SkipPrivate(%q) = %v, want %v", tt.name, got, tt.keep)
		}
	}
}
