package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

func newTestStorage(t *testing.T, clock ...time.Time) *Storage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(clock) > 0 {
		i := 0
		s.now = func() time.Time {
			ts := clock[i]
			if i < len(clock)-1 {
				i++
			}
			return ts
		}
	}
	return s
}

func sampleResults(venueID string, ids ...string) []*event.ScraperResult {
	date := event.NewCalendarDate(time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC))
	res := &event.ScraperResult{
		Venue:   "Venue " + venueID,
		VenueID: venueID,
		Success: true,
		Events:  []*event.ScrapedEvent{},
	}
	for _, id := range ids {
		res.Events = append(res.Events, &event.ScrapedEvent{
			ID:         id,
			Name:       "Show " + id,
			Date:       date,
			VenueID:    venueID,
			Performers: []string{"Band " + id},
			Genre:      []string{},
		})
	}
	return []*event.ScraperResult{res}
}

func TestNew_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}
	if s.DataDir() != dir {
		t.Errorf("DataDir() = %q, want %q", s.DataDir(), dir)
	}
	if s.GenreCachePath() != filepath.Join(dir, GenreCacheFile) {
		t.Errorf("GenreCachePath() = %q", s.GenreCachePath())
	}
}

func TestSnapshotName(t *testing.T) {
	ts := time.Date(2025, 6, 15, 12, 30, 45, 123456789, time.UTC)
	name := snapshotName(ts)

	want := "scrape-2025-06-15T12-30-45-123456789Z.json"
	if name != want {
		t.Errorf("snapshotName() = %q, want %q", name, want)
	}
	if strings.ContainsAny(strings.TrimSuffix(name, ".json"), ":.") {
		t.Errorf("snapshotName() = %q contains ':' or '.'", name)
	}

	got, ok := SnapshotTime(name)
	if !ok || !got.Equal(ts) {
		t.Errorf("SnapshotTime(%q) = %v, %v, want %v", name, got, ok, ts)
	}
}

func TestSnapshotTime_ShortFraction(t *testing.T) {
	got, ok := SnapshotTime("scrape-2025-06-15T12-30-45-5Z.json")
	want := time.Date(2025, 6, 15, 12, 30, 45, 500000000, time.UTC)
	if !ok || !got.Equal(want) {
		t.Errorf("SnapshotTime() = %v, %v, want %v", got, ok, want)
	}

	if _, ok := SnapshotTime("scrape-garbage.json"); ok {
		t.Error("SnapshotTime() accepted a malformed name")
	}
}

func TestLatestSnapshot_None(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.LatestSnapshot()
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LatestSnapshot() error = %v, want ErrNoSnapshot", err)
	}
}

func TestSaveSnapshot_LatestWins(t *testing.T) {
	first := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	second := first.Add(90 * time.Minute)
	s := newTestStorage(t, first, second)

	if _, err := s.SaveSnapshot(sampleResults("the-camel", "a", "b")); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	path, err := s.SaveSnapshot(sampleResults("the-camel", "c"))
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	paths, err := s.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d snapshots, want 2 (snapshots are never merged)", len(paths))
	}
	if paths[0] != path {
		t.Errorf("newest snapshot = %s, want %s", paths[0], path)
	}

	latest, err := s.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot() error = %v", err)
	}
	if !latest.Timestamp.Equal(second) {
		t.Errorf("Timestamp = %v, want %v", latest.Timestamp, second)
	}
	events := latest.Events()
	if len(events) != 1 || events[0].ID != "c" {
		t.Errorf("latest events = %+v, want only c", events)
	}
	if events[0].Date.String() != "2025-07-12" {
		t.Errorf("Date = %s, want 2025-07-12", events[0].Date)
	}
}

func TestLoadSnapshot_Corrupt(t *testing.T) {
	s := newTestStorage(t)
	path := filepath.Join(s.DataDir(), "scrape-2025-06-15T12-00-00-000000000Z.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := s.LatestSnapshot()
	if err == nil || errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LatestSnapshot() error = %v, want a parse error", err)
	}
}

func TestGetEventByID(t *testing.T) {
	s := newTestStorage(t)

	if _, _, err := s.GetEventByID("a"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("GetEventByID() with no snapshot error = %v, want ErrNoSnapshot", err)
	}

	if _, err := s.SaveSnapshot(sampleResults("canal-club", "a", "b")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "first event", id: "a"},
		{name: "second event", id: "b"},
		{name: "missing event", id: "zzz", wantErr: ErrEventNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, res, err := s.GetEventByID(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetEventByID() error = %v", err)
			}
			if evt.ID != tt.id {
				t.Errorf("ID = %s, want %s", evt.ID, tt.id)
			}
			if res.VenueID != "canal-club" {
				t.Errorf("result venue = %s, want canal-club", res.VenueID)
			}
		})
	}
}

func TestEnrichedRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.LoadEnriched()
	if err != nil || got != nil {
		t.Fatalf("LoadEnriched() on empty dir = %v, %v, want nil, nil", got, err)
	}

	base := sampleResults("the-national", "x")[0].Events[0]
	events := []*event.EnrichedEvent{{
		ScrapedEvent: *base,
		VenueName:    "The National",
		PrimaryGenre: "Indie Rock",
		OtherGenres:  []string{"Rock"},
	}}
	if err := s.SaveEnriched(events); err != nil {
		t.Fatalf("SaveEnriched() error = %v", err)
	}

	got, err = s.LoadEnriched()
	if err != nil {
		t.Fatalf("LoadEnriched() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].ID != "x" || got[0].VenueName != "The National" || got[0].PrimaryGenre != "Indie Rock" {
		t.Errorf("LoadEnriched() = %+v", got[0])
	}
	if got[0].Date.String() != "2025-07-12" {
		t.Errorf("Date = %s", got[0].Date)
	}
}

func TestLoadEnriched_Corrupt(t *testing.T) {
	s := newTestStorage(t)
	if err := os.WriteFile(filepath.Join(s.DataDir(), EnrichedFile), []byte("[{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadEnriched(); err == nil {
		t.Error("LoadEnriched() error = nil, want parse error")
	}
}
