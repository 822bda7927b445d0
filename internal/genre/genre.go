package genre

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// SourceName labels where a GenreInfo came from
type SourceName string

// Known sources
const (
	SourceBandcamp  SourceName = "bandcamp"
	SourceSpotify   SourceName = "spotify"
	SourceWikipedia SourceName = "wikipedia"
	SourceKeyword   SourceName = "keyword"
	SourceVenue     SourceName = "venue"
	SourceCombined  SourceName = "combined"
	SourceDefault   SourceName = "default"
)

// Unknown is the primary genre when nothing could be inferred
const Unknown = "Unknown"

// Errors returned by sources
var (
	ErrNotConfigured = errors.New("source not configured")
	ErrNoMatch       = errors.New("no genre data for artist")
)

// GenreInfo is the inferred genre of one artist
type GenreInfo struct {
	PrimaryGenre string     `json:"primaryGenre"`
	OtherGenres  []string   `json:"otherGenres"`
	Source       SourceName `json:"source"`
	Style        string     `json:"style,omitempty"`
}

// DefaultInfo is the result when no source knows the artist
func DefaultInfo() GenreInfo {
	return GenreInfo{PrimaryGenre: Unknown, OtherGenres: []string{}, Source: SourceDefault}
}

// IsDefault reports whether info carries no inferred genre
func (g GenreInfo) IsDefault() bool {
	return g.Source == SourceDefault || g.PrimaryGenre == "" || g.PrimaryGenre == Unknown
}

// Classifier infers a genre for an artist, optionally using surrounding event text
type Classifier interface {
	Classify(ctx context.Context, artist, contextText string) GenreInfo
}

// Source is one external genre lookup
type Source interface {
	Name() SourceName
	Lookup(ctx context.Context, artist string) (*GenreInfo, error)
}

// TitleCase capitalizes every word of a genre tag: "hip-hop" becomes "Hip-Hop", "r&b" becomes "R&B"
func TitleCase(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	out := []rune(s)
	upper := true
	for i, r := range out {
		if upper && unicode.IsLetter(r) {
			out[i] = unicode.ToUpper(r)
		}
		upper = r == ' ' || r == '-' || r == '&' || r == '/' || r == '('
	}
	return string(out)
}

// splitTags splits a comma or newline separated tag list
func splitTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';' || r == '·'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}

// infoFromTags makes the first tag primary and the rest others
func infoFromTags(source SourceName, tags []string) (*GenreInfo, error) {
	if len(tags) == 0 {
		return nil, ErrNoMatch
	}
	return &GenreInfo{
		PrimaryGenre: tags[0],
		OtherGenres:  append([]string{}, tags[1:]...),
		Source:       source,
	}, nil
}
