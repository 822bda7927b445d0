package genre

import (
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/rules"
)

// Classifier modes
const (
	ModeLive    = "live"
	ModeKeyword = "keyword"
)

// Options configures NewClassifier
type Options struct {
	Mode                string
	KeywordFallback     bool
	Rules               *rules.Set
	Cache               Cache
	SpotifyClientID     string
	SpotifyClientSecret string
	Metrics             *metrics.Metrics
	// Sources overrides the default bandcamp, spotify, wikipedia chain
	Sources []Source
}

// DefaultSources returns the sources in query order
func DefaultSources(rs *rules.Set, spotifyClientID, spotifyClientSecret string) []Source {
	return []Source{
		NewBandcampSource(),
		NewSpotifySource(spotifyClientID, spotifyClientSecret, rs.Names.SpotifyIDs),
		NewWikipediaSource(),
	}
}

// NewClassifier returns the keyword classifier for ModeKeyword and the live engine otherwise
func NewClassifier(opts Options) Classifier {
	if opts.Rules == nil {
		opts.Rules = rules.Default()
	}
	keyword := NewKeywordClassifier(opts.Rules.Genres)
	if opts.Mode == ModeKeyword {
		return keyword
	}

	sources := opts.Sources
	if sources == nil {
		sources = DefaultSources(opts.Rules, opts.SpotifyClientID, opts.SpotifyClientSecret)
	}

	engine := NewLiveEngine(sources, opts.Cache, opts.Rules.Genres, opts.Metrics)
	if opts.KeywordFallback {
		engine.Fallback = keyword
	}
	return engine
}
