package genre

import (
	"context"
	"errors"
	"strings"

	"github.com/proprogresja/venue-events/internal/logger"
	"github.com/proprogresja/venue-events/internal/metrics"
	"github.com/proprogresja/venue-events/internal/rules"
)

// LiveEngine looks artists up in external sources and caches the merged result
type LiveEngine struct {
	sources []Source
	cache   Cache
	weights rules.Genres
	metrics *metrics.Metrics

	// Fallback classifies artists that no source knows. The fallback answer is not cached.
	Fallback Classifier
}

// NewLiveEngine creates an engine that queries sources in the given order
func NewLiveEngine(sources []Source, cache Cache, weights rules.Genres, m *metrics.Metrics) *LiveEngine {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &LiveEngine{
		sources: sources,
		cache:   cache,
		weights: weights,
		metrics: m,
	}
}

// Cache returns the engine's cache
func (e *LiveEngine) Cache() Cache {
	return e.cache
}

// GetGenreInfo returns the cached entry for artist or queries every source and caches
// the merged answer. Unknown results are cached too, so an artist is not re-queried
// while the cache entry lives. Nothing is cached once ctx is done.
func (e *LiveEngine) GetGenreInfo(ctx context.Context, artist string) GenreInfo {
	if strings.TrimSpace(artist) == "" {
		return DefaultInfo()
	}

	if info, ok := e.cache.Get(ctx, artist); ok {
		e.metrics.GenreCacheHit()
		return info
	}

	var found []*GenreInfo
	for _, src := range e.sources {
		info, err := src.Lookup(ctx, artist)
		switch {
		case err == nil && info != nil:
			info.Source = src.Name()
			found = append(found, info)
			e.metrics.GenreLookup(string(src.Name()), true)
		case errors.Is(err, ErrNotConfigured):
			logger.Debug("Genre source not configured", logger.Fields{"source": string(src.Name())})
		case errors.Is(err, ErrNoMatch), err == nil:
			e.metrics.GenreLookup(string(src.Name()), false)
		default:
			e.metrics.GenreLookup(string(src.Name()), false)
			logger.Warn("Genre lookup failed", logger.Fields{
				"source": string(src.Name()),
				"artist": artist,
				"error":  err.Error(),
			})
		}
	}

	merged := Merge(e.weights, found...)
	if ctx.Err() != nil {
		return merged
	}
	if err := e.cache.Set(ctx, artist, merged); err != nil {
		logger.Warn("Could not write genre cache", logger.Fields{"artist": artist, "error": err.Error()})
	}
	return merged
}

// Classify implements Classifier. contextText is only used by the fallback.
func (e *LiveEngine) Classify(ctx context.Context, artist, contextText string) GenreInfo {
	info := e.GetGenreInfo(ctx, artist)
	if info.IsDefault() && e.Fallback != nil {
		return e.Fallback.Classify(ctx, artist, contextText)
	}
	return info
}
