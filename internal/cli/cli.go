package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/proprogresja/venue-events/internal/config"
	"github.com/proprogresja/venue-events/internal/enrich"
	"github.com/proprogresja/venue-events/internal/genre"
	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/orchestrator"
	"github.com/proprogresja/venue-events/internal/performer"
	"github.com/proprogresja/venue-events/internal/rules"
	"github.com/proprogresja/venue-events/internal/scraper"
	"github.com/proprogresja/venue-events/internal/storage"
	"github.com/proprogresja/venue-events/internal/venues"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagDataDir   string
	flagRulesDir  string
	flagLogLevel  string
	flagGenreMode string
	flagVerbose   bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venue-events",
		Short: "Aggregate upcoming shows from live-music venues",
		Long: `A tool that scrapes the event calendars of local live-music venues,
normalizes them into one listing, and tags every show with its headliner's genre.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory for snapshots and caches (default $DATA_DIR)")
	cmd.PersistentFlags().StringVar(&flagRulesDir, "rules-dir", "", "Directory with rule YAML overrides (default $RULES_DIR)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default $LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&flagGenreMode, "genre-mode", "", "Genre inference: live or keyword (default $GENRE_MODE)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")

	cmd.AddCommand(
		newScrapeCmd(),
		newEnrichCmd(),
		newEventsCmd(),
		newGenreCmd(),
		newServeCmd(),
		newICSCmd(),
		newVenuesCmd(),
	)

	return cmd
}

// app holds the components shared by every command
type app struct {
	cfg        *config.Config
	rules      *rules.Set
	store      *storage.Storage
	metrics    *metrics.Metrics
	classifier genre.Classifier
	enricher   *enrich.Pipeline
	runner     *orchestrator.Runner
	closers    []io.Closer
}

// newApp loads configuration, applies flag overrides and builds the shared components.
// Logs go to logOut; stdout is reserved for command output.
func newApp(logOut io.Writer) (*app, error) {
	// config warnings are logged while loading
	logger.SetDefault(logger.NewWithFormat(logger.ParseLevel(flagLogLevel), os.Getenv("LOG_FORMAT"), logOut))

	cfg := config.Load()
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagRulesDir != "" {
		cfg.RulesDir = flagRulesDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagGenreMode != "" {
		cfg.GenreMode = flagGenreMode
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	logger.SetDefault(logger.NewWithFormat(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat, logOut))

	rs, err := rules.Load(cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	a := &app{
		cfg:     cfg,
		rules:   rs,
		store:   store,
		metrics: metrics.Default,
	}

	a.classifier = genre.NewClassifier(genre.Options{
		Mode:                cfg.GenreMode,
		KeywordFallback:     cfg.GenreKeywordFallback,
		Rules:               rs,
		Cache:               a.genreCache(),
		SpotifyClientID:     cfg.SpotifyClientID,
		SpotifyClientSecret: cfg.SpotifyClientSecret,
		Metrics:             a.metrics,
	})
	a.enricher = enrich.New(store, a.classifier, rs, a.metrics)

	pipeline := scraper.NewPipeline(performer.New(rs.Names), time.Now)
	extractors, err := venues.Build(rs, pipeline, venues.Options{
		Browser: scraper.NewBrowserFetcher(cfg.ChromeBin),
	})
	if err != nil {
		return nil, fmt.Errorf("building venue extractors: %w", err)
	}
	a.runner = orchestrator.New(extractors, orchestrator.Options{
		Timeout:     cfg.ScrapeTimeout,
		Retries:     cfg.ScrapeRetries,
		Backoff:     orchestrator.DefaultBackoff,
		Delay:       cfg.ScrapeDelay,
		Concurrency: cfg.ScrapeConcurrency,
		Metrics:     a.metrics,
	})

	return a, nil
}

// genreCache picks the configured backend; an unreachable redis falls back to the file cache
func (a *app) genreCache() genre.Cache {
	if a.cfg.GenreCache == config.CacheRedis {
		client := genre.NewGoRedisClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := client.Ping(ctx)
		if err == nil {
			a.closers = append(a.closers, client)
			return genre.NewRedisCache(client)
		}
		logger.Warn("Redis unreachable, using file genre cache", logger.Fields{
			"addr":  a.cfg.RedisAddr,
			"error": err.Error(),
		})
		client.Close()
	}
	return genre.NewFileCache(a.store.GenreCachePath())
}

func (a *app) refresher(carryForward, noEnrich bool) *orchestrator.Refresher {
	r := &orchestrator.Refresher{
		Runner:       a.runner,
		Store:        a.store,
		Enricher:     a.enricher,
		CarryForward: carryForward || a.cfg.CarryForward,
	}
	if noEnrich {
		r.Enricher = nil
	}
	return r
}

func (a *app) Close() {
	for _, c := range a.closers {
		c.Close()
	}
}

// withApp builds the app for a command and releases it afterwards
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
