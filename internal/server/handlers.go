package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/proprogresja/venue-events/internal/calendar"
	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/filter"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/storage"
)

// Query arguments accepted by GET /api/events
const (
	venueQueryArg = "venue"
	genreQueryArg = "genre"
	fromQueryArg  = "from"
	toQueryArg    = "to"
	rangeQueryArg = "range"
	textQueryArg  = "q"
)

// EventsResponse is the body of GET /api/events
type EventsResponse struct {
	Events      []*event.EnrichedEvent `json:"events"`
	LastUpdated time.Time              `json:"lastUpdated"`
	Count       int                    `json:"count"`
}

// VenueStatus summarizes one venue of a triggered run
type VenueStatus struct {
	Venue      string `json:"venue"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	EventCount int    `json:"eventCount"`
}

// RunResponse is the body of POST /api/run-scrapers
type RunResponse struct {
	Success       bool          `json:"success"`
	LastUpdated   time.Time     `json:"lastUpdated"`
	VenueStatuses []VenueStatus `json:"venueStatuses"`
	NewEvents     int           `json:"newEvents"`
	Error         string        `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	events, lastUpdated, ok := s.loadEvents(w, r)
	if !ok {
		return
	}

	events = f.Apply(events)
	writeJSON(w, http.StatusOK, EventsResponse{
		Events:      events,
		LastUpdated: lastUpdated,
		Count:       len(events),
	})
}

// parseFilter builds a filter from query arguments; venue and genre may repeat or be comma separated
func (s *Server) parseFilter(vals url.Values) (*filter.Filter, error) {
	f := filter.NewFilter()
	f.Venues = listArg(vals, venueQueryArg)
	f.Genres = listArg(vals, genreQueryArg)
	f.Query = vals.Get(textQueryArg)

	if v := vals.Get(rangeQueryArg); v != "" {
		from, to, err := filter.ParseDateRange(v, s.opts.Now())
		if err != nil {
			return nil, err
		}
		f.DateFrom, f.DateTo = from, to
	}
	if v := vals.Get(fromQueryArg); v != "" {
		from, err := filter.ParseDay(v, false)
		if err != nil {
			return nil, err
		}
		f.DateFrom = from
	}
	if v := vals.Get(toQueryArg); v != "" {
		to, err := filter.ParseDay(v, true)
		if err != nil {
			return nil, err
		}
		f.DateTo = to
	}
	return f, nil
}

func listArg(vals url.Values, name string) []string {
	var out []string
	for _, v := range vals[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// loadEvents writes the error response itself and reports false when there is nothing to serve
func (s *Server) loadEvents(w http.ResponseWriter, r *http.Request) ([]*event.EnrichedEvent, time.Time, bool) {
	events, lastUpdated, err := s.opts.Events.GetEnrichedEvents(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no scraped events yet, run the scrapers first"})
			return nil, time.Time{}, false
		}
		logger.Error("Loading events failed", nil, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return nil, time.Time{}, false
	}
	if events == nil {
		events = []*event.EnrichedEvent{}
	}
	return events, lastUpdated, true
}

func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	events, _, ok := s.loadEvents(w, r)
	if !ok {
		return
	}

	for _, evt := range events {
		if evt.ID != id {
			continue
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.ics"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(calendar.GenerateICS(evt, s.opts.Now()))); err != nil {
			logger.Warn("Writing calendar failed", logger.Fields{"error": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusNotFound, errorResponse{Error: "event not found: " + id})
}

func (s *Server) handleRunScrapers(w http.ResponseWriter, r *http.Request) {
	if s.opts.Refresher == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "scraping is not enabled"})
		return
	}
	if !s.runMu.TryLock() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "a scrape run is already in progress"})
		return
	}
	defer s.runMu.Unlock()

	// the run outlives a disconnected client but not the timeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.RunTimeout)
	defer cancel()

	outcome, err := s.opts.Refresher.Refresh(ctx, r.URL.Query().Get(venueQueryArg))
	if err != nil {
		logger.Error("Triggered scrape run failed", nil, err)
		writeJSON(w, http.StatusInternalServerError, RunResponse{
			Success:       false,
			VenueStatuses: []VenueStatus{},
			Error:         err.Error(),
		})
		return
	}

	statuses := make([]VenueStatus, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		statuses = append(statuses, VenueStatus{
			Venue:      res.Venue,
			Success:    res.Success,
			Error:      res.Error,
			EventCount: len(res.Events),
		})
	}

	writeJSON(w, http.StatusOK, RunResponse{
		Success:       true,
		LastUpdated:   outcome.ScrapedAt,
		VenueStatuses: statuses,
		NewEvents:     len(outcome.NewEvents),
	})
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	venues := s.opts.Venues
	if venues == nil {
		venues = []VenueInfo{}
	}
	writeJSON(w, http.StatusOK, venues)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Error encoding response", logger.Fields{"error": err.Error()})
	}
}
