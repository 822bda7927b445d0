package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/orchestrator"
)

// EventSource serves the enriched events of the latest snapshot
type EventSource interface {
	GetEnrichedEvents(ctx context.Context) ([]*event.EnrichedEvent, time.Time, error)
}

// Refresher triggers a scrape run; an empty venueID means every venue
type Refresher interface {
	Refresh(ctx context.Context, venueID string) (*orchestrator.Outcome, error)
}

// VenueInfo is one registry entry as served by /api/venues
type VenueInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

// Options configures a Server
type Options struct {
	Events    EventSource
	Refresher Refresher
	Venues    []VenueInfo
	Metrics   *metrics.Metrics
	// StaticDir, when set, is served at /
	StaticDir string
	// RunTimeout bounds a triggered scrape run
	RunTimeout time.Duration
	Now        func() time.Time
}

// Server is the HTTP API
type Server struct {
	opts   Options
	router *mux.Router
	// runMu serializes scrape runs triggered over HTTP
	runMu sync.Mutex
}

// New creates a Server and registers its routes
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 15 * time.Minute
	}
	s := &Server{opts: opts, router: mux.NewRouter()}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes wires every endpoint into the router
func (s *Server) RegisterRoutes() {
	s.router.HandleFunc("/api/events", s.handleEvents).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events/{id}.ics", s.handleEventICS).Methods(http.MethodGet)
	s.router.HandleFunc("/api/run-scrapers", s.handleRunScrapers).Methods(http.MethodPost)
	s.router.HandleFunc("/api/venues", s.handleVenues).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.opts.Metrics != nil {
		s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	if s.opts.StaticDir != "" {
		if info, err := os.Stat(s.opts.StaticDir); err == nil && info.IsDir() {
			s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.StaticDir)))
		} else {
			logger.Warn("Static directory not found, not serving files", logger.Fields{"dir": s.opts.StaticDir})
		}
	}

	s.router.Use(logRequests)
}

// ServeHTTP makes Server an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", logger.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down the server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// statusRecorder captures the response code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request", logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}
