package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/proprogresja/venue-events/internal/calendar"
	"github.com/proprogresja/venue-events/internal/event"
	"github.com/proprogresja/venue-events/internal/filter"
	"github.com/proprogresja/venue-events/internal/server"
)

func newScrapeCmd() *cobra.Command {
	var (
		venueID      string
		noEnrich     bool
		carryForward bool
		format       string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every venue, save a snapshot and report new shows",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			outcome, err := a.refresher(carryForward, noEnrich).Refresh(ctx, venueID)
			if err != nil {
				return fmt.Errorf("scraping: %w", err)
			}

			result := &ScrapeOutput{
				ScrapedAt: outcome.ScrapedAt,
				Snapshot:  outcome.SnapshotPath,
				NewEvents: outcome.NewEvents,
				Removed:   outcome.Removed,
				Enriched:  len(outcome.Enriched),
			}
			for _, res := range outcome.Results {
				result.Venues = append(result.Venues, VenueSummary{
					Venue:      res.Venue,
					VenueID:    res.VenueID,
					Success:    res.Success,
					Error:      res.Error,
					EventCount: len(res.Events),
					Attempts:   res.Attempts,
				})
				result.EventCount += len(res.Events)
			}

			if err := WriteScrape(cmd.OutOrStdout(), result, outFormat, flagVerbose); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&venueID, "venue", "", "Only scrape this venue ID")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip genre enrichment")
	cmd.Flags().BoolVar(&carryForward, "carry-forward", false, "Keep the previous events of venues that fail")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Re-run genre enrichment on the latest snapshot",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			snapshot, err := a.store.LatestSnapshot()
			if err != nil {
				return fmt.Errorf("loading latest snapshot: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			enriched := a.enricher.Enrich(ctx, snapshot.Results)
			fmt.Fprintf(cmd.OutOrStdout(), "Enriched %d events from %s\n", len(enriched), snapshot.Path)
			return nil
		}),
	}
}

func newEventsCmd() *cobra.Command {
	var (
		format    string
		sortOrder string
		venues    []string
		genres    []string
		dateRange string
		query     string
		weekends  bool
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming enriched events",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			order, err := parseSortOrder(sortOrder)
			if err != nil {
				return err
			}

			f := filter.NewFilter()
			f.Venues = venues
			f.Genres = genres
			f.Query = query
			f.WeekendsOnly = weekends
			if dateRange != "" {
				from, to, err := filter.ParseDateRange(dateRange, time.Now())
				if err != nil {
					return err
				}
				f.DateFrom, f.DateTo = from, to
			}

			ctx, cancel := signalContext()
			defer cancel()

			events, lastUpdated, err := a.enricher.GetEnrichedEvents(ctx)
			if err != nil {
				return err
			}

			events = f.Apply(events)
			sortEvents(events, order)

			result := &EventsOutput{
				LastUpdated: lastUpdated,
				Events:      events,
				Count:       len(events),
			}
			if !f.IsEmpty() {
				result.Filter = f.String()
			}
			return WriteEvents(cmd.OutOrStdout(), result, outFormat, time.Now(), flagVerbose)
		}),
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&sortOrder, "sort", "date", "Sort order: date, venue or title")
	cmd.Flags().StringSliceVar(&venues, "venue", nil, "Only these venues (ID or name)")
	cmd.Flags().StringSliceVar(&genres, "genre", nil, "Only these genres")
	cmd.Flags().StringVar(&dateRange, "range", "", "Date range, e.g. 'Aug 1-15' or 'September'")
	cmd.Flags().StringVar(&query, "search", "", "Only titles or performers containing this text")
	cmd.Flags().BoolVar(&weekends, "weekends", false, "Only Friday to Sunday shows")

	return cmd
}

func newGenreCmd() *cobra.Command {
	var (
		format      string
		contextText string
	)

	cmd := &cobra.Command{
		Use:   "genre <artist>...",
		Short: "Look up the genre of one or more artists",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			for _, artist := range args {
				info := a.classifier.Classify(ctx, strings.TrimSpace(artist), contextText)
				if err := WriteGenre(cmd.OutOrStdout(), artist, info, outFormat); err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&contextText, "context", "", "Event title or description to help keyword inference")

	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		addr      string
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			if staticDir == "" {
				staticDir = a.cfg.StaticDir
			}

			srv := server.New(server.Options{
				Events:    a.enricher,
				Refresher: a.refresher(false, false),
				Venues:    a.venueInfos(),
				Metrics:   a.metrics,
				StaticDir: staticDir,
			})

			ctx, cancel := signalContext()
			defer cancel()
			return srv.ListenAndServe(ctx, addr)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $LISTEN_ADDR)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Serve files from this directory at / (default $STATIC_DIR)")

	return cmd
}

func newICSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ics <event-id>",
		Short: "Print an iCalendar entry for an event",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			evt, res, err := a.store.GetEventByID(args[0])
			if err != nil {
				return err
			}

			enriched := &event.EnrichedEvent{ScrapedEvent: *evt, VenueName: res.Venue}
			if cached, err := a.store.LoadEnriched(); err == nil {
				for _, e := range cached {
					if e.ID == evt.ID {
						enriched = e
						break
					}
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), calendar.GenerateICS(enriched, time.Now()))
			return nil
		}),
	}
}

func newVenuesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "venues",
		Short: "List the venue registry",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			infos := a.venueInfos()
			if outFormat == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), infos)
			}
			for _, v := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-28s %-20s %s\n", v.ID, v.Name, v.Mode, v.URL)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

// venueInfos lists the registry in scrape order
func (a *app) venueInfos() []server.VenueInfo {
	infos := make([]server.VenueInfo, 0, len(a.rules.Venues))
	for _, v := range a.rules.Venues {
		infos = append(infos, server.VenueInfo{ID: v.ID, Name: v.Name, URL: v.URL, Mode: v.Mode})
	}
	return infos
}
