package event

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the ISO calendar date layout used in every persisted file
const DateLayout = "2006-01-02"

// CalendarDate is a date without a time of day, stored at UTC midnight
type CalendarDate struct {
	time.Time
}

// NewCalendarDate truncates t to its calendar day in UTC
func NewCalendarDate(t time.Time) CalendarDate {
	return CalendarDate{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// String returns the ISO form of the date
func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD"
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD" as well as full RFC3339 timestamps
func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = NewCalendarDate(t)
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	*d = NewCalendarDate(t)
	return nil
}

// RawEventCandidate is what a venue extractor pulls out of a page before normalization
type RawEventCandidate struct {
	Name        string
	DateText    string
	TimeText    string
	Description string
	SourceURL   string
	VenueID     string
	Performers  []string // only set when the venue lists performers explicitly
	Genres      []string // raw genre tags supplied by the venue
}

// ScrapedEvent is one normalized show at one venue
type ScrapedEvent struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Date        CalendarDate `json:"date"`
	StartTime   string       `json:"startTime"`
	Description string       `json:"description"`
	VenueID     string       `json:"venueId"`
	SourceURL   string       `json:"sourceUrl"`
	Performers  []string     `json:"performers"`
	Genre       []string     `json:"genre"`
	LastScraped time.Time    `json:"lastScraped"`
	Hash        string       `json:"hash"`
}

// Headliner returns the first performer, or the event name when no performers were found
func (e *ScrapedEvent) Headliner() string {
	if len(e.Performers) > 0 && strings.TrimSpace(e.Performers[0]) != "" {
		return e.Performers[0]
	}
	return e.Name
}

// ScraperResult is the outcome of scraping one venue in one run
type ScraperResult struct {
	Venue     string          `json:"venue"`
	VenueID   string          `json:"venueId"`
	Events    []*ScrapedEvent `json:"events"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	ScrapedAt time.Time       `json:"scrapedAt"`
	Attempts  int             `json:"attempts,omitempty"`
}

// EnrichedEvent is a ScrapedEvent with its venue name and inferred genre attached
type EnrichedEvent struct {
	ScrapedEvent
	VenueName    string   `json:"venueName"`
	PrimaryGenre string   `json:"primaryGenre"`
	OtherGenres  []string `json:"otherGenres"`
	Style        string   `json:"style,omitempty"`
}

// Hash creates a deterministic fingerprint of the fields that identify a show
func Hash(name string, date CalendarDate, startTime, venueID string) string {
	h := sha1.New()
	h.Write([]byte(name + "|" + date.String() + "|" + startTime + "|" + venueID))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// NewScrapedEvent creates a ScrapedEvent with ID, Hash, and LastScraped populated
func NewScrapedEvent(raw RawEventCandidate, date CalendarDate, startTime string, performers []string, now time.Time) *ScrapedEvent {
	name := strings.TrimSpace(raw.Name)
	if performers == nil {
		performers = []string{}
	}
	genres := raw.Genres
	if genres == nil {
		genres = []string{}
	}
	return &ScrapedEvent{
		ID:          uuid.NewString(),
		Name:        name,
		Date:        date,
		StartTime:   startTime,
		Description: strings.TrimSpace(raw.Description),
		VenueID:     raw.VenueID,
		SourceURL:   raw.SourceURL,
		Performers:  performers,
		Genre:       genres,
		LastScraped: now.UTC(),
		Hash:        Hash(name, date, startTime, raw.VenueID),
	}
}

// Flatten returns every event of every result, in result order
func Flatten(results []*ScraperResult) []*ScrapedEvent {
	var all []*ScrapedEvent
	for _, r := range results {
		if r == nil {
			continue
		}
		all = append(all, r.Events...)
	}
	return all
}
