package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func enriched(id, name, venueID, venueName string, date time.Time, primary string, others ...string) *event.EnrichedEvent {
	return &event.EnrichedEvent{
		ScrapedEvent: event.ScrapedEvent{
			ID:         id,
			Name:       name,
			Date:       event.NewCalendarDate(date),
			VenueID:    venueID,
			Performers: strings.Split(name, " / "),
			Genre:      []string{},
		},
		VenueName:    venueName,
		PrimaryGenre: primary,
		OtherGenres:  others,
	}
}

func TestFilter_IsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"empty filter", NewFilter(), true},
		{"blank query", &Filter{Query: "   "}, true},
		{"date from", &Filter{DateFrom: timePtr(time.Now())}, false},
		{"weekends only", &Filter{WeekendsOnly: true}, false},
		{"venue", &Filter{Venues: []string{"the-camel"}}, false},
		{"genre", &Filter{Genres: []string{"Jazz"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.IsEmpty(); got != tt.want {
				t.Errorf("Filter.IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	fri := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	tue := time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)

	show := enriched("1", "Leftover Salmon / Larry Keel", "the-camel", "The Camel", fri, "Bluegrass", "Jam Band")
	show.Style = "Newgrass"

	tests := []struct {
		name   string
		filter *Filter
		event  *event.EnrichedEvent
		want   bool
	}{
		{"empty filter matches all", NewFilter(), show, true},
		{"venue id", &Filter{Venues: []string{"the-camel"}}, show, true},
		{"venue name substring", &Filter{Venues: []string{"camel"}}, show, true},
		{"venue mismatch", &Filter{Venues: []string{"the-national"}}, show, false},
		{"primary genre any case", &Filter{Genres: []string{"bluegrass"}}, show, true},
		{"other genre", &Filter{Genres: []string{"jam band"}}, show, true},
		{"style", &Filter{Genres: []string{"Newgrass"}}, show, true},
		{"genre substring does not match", &Filter{Genres: []string{"grass"}}, show, false},
		{"query on performer", &Filter{Query: "keel"}, show, true},
		{"query mismatch", &Filter{Query: "gwar"}, show, false},
		{"from same day", &Filter{DateFrom: timePtr(fri.Add(20 * time.Hour))}, show, true},
		{"from after", &Filter{DateFrom: timePtr(tue)}, show, false},
		{"to before", &Filter{DateTo: timePtr(fri.Add(-time.Hour))}, show, false},
		{"weekend friday", &Filter{WeekendsOnly: true}, show, true},
		{"weekend tuesday", &Filter{WeekendsOnly: true}, enriched("2", "GWAR", "the-national", "The National", tue, "Metal"), false},
		{
			"all criteria",
			&Filter{
				DateFrom: timePtr(fri),
				DateTo:   timePtr(tue),
				Venues:   []string{"the-camel"},
				Genres:   []string{"Bluegrass"},
			},
			show,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.event); got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	events := []*event.EnrichedEvent{
		enriched("1", "Leftover Salmon", "the-camel", "The Camel", time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC), "Bluegrass"),
		enriched("2", "GWAR", "the-national", "The National", time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), "Metal"),
		enriched("3", "Mdou Moctar", "the-camel", "The Camel", time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC), "Desert Blues"),
	}

	if got := NewFilter().Apply(events); len(got) != 3 {
		t.Errorf("empty filter returned %d events, want 3", len(got))
	}

	f := &Filter{Venues: []string{"the-camel"}}
	got := f.Apply(events)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("venue filter returned wrong events: %v", got)
	}

	none := (&Filter{Genres: []string{"Polka"}}).Apply(events)
	if none == nil || len(none) != 0 {
		t.Errorf("no match should give an empty non-nil slice, got %v", none)
	}
}

func TestFilter_String(t *testing.T) {
	if got := NewFilter().String(); got != "No active filters" {
		t.Errorf("String() = %q", got)
	}

	f := &Filter{
		DateFrom:     timePtr(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)),
		Genres:       []string{"Bluegrass"},
		WeekendsOnly: true,
	}
	want := "From: Aug 1, 2025 | Genres: Bluegrass | Weekends only"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
