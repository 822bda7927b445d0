package genre

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/proprogresja/venue-events/internal/rules"
)

type keywordRule struct {
	genre   string
	pattern *regexp.Regexp
}

// KeywordClassifier scores genres from keyword and pattern tables without network access
type KeywordClassifier struct {
	genres   rules.Genres
	keywords []keywordRule
}

// NewKeywordClassifier compiles the keyword table
func NewKeywordClassifier(g rules.Genres) *KeywordClassifier {
	k := &KeywordClassifier{genres: g}

	names := make([]string, 0, len(g.Keywords))
	for name := range g.Keywords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, kw := range g.Keywords[name] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			k.keywords = append(k.keywords, keywordRule{
				genre:   name,
				pattern: regexp.MustCompile(`(?:^|[^\pL\pN])` + regexp.QuoteMeta(kw) + `(?:$|[^\pL\pN])`),
			})
		}
	}
	return k
}

// Classify scores artist and contextText. A keyword in the artist name scores 2,
// one found only in the context scores 1. Pattern tables add their boosts.
func (k *KeywordClassifier) Classify(_ context.Context, artist, contextText string) GenreInfo {
	name := strings.ToLower(strings.TrimSpace(artist))
	text := strings.ToLower(strings.TrimSpace(artist + " " + contextText))
	scores := make(map[string]int)

	for _, rule := range k.keywords {
		switch {
		case rule.pattern.MatchString(name):
			scores[rule.genre] += 2
		case rule.pattern.MatchString(text):
			scores[rule.genre]++
		}
	}

	for i := range k.genres.PriorityPatterns {
		p := &k.genres.PriorityPatterns[i]
		if re := p.Regexp(); re != nil && re.MatchString(text) {
			scores[p.Genre] += p.Boost
		}
	}
	for i := range k.genres.SuspiciousNamePatterns {
		p := &k.genres.SuspiciousNamePatterns[i]
		if re := p.Regexp(); re != nil && re.MatchString(name) {
			scores[p.Genre] += p.Boost
		}
	}

	ranked := make([]string, 0, len(scores))
	for g, score := range scores {
		if score > 0 {
			ranked = append(ranked, g)
		}
	}
	if len(ranked) == 0 {
		return DefaultInfo()
	}

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		wi, wj := k.genres.Weight(ranked[i]), k.genres.Weight(ranked[j])
		if wi != wj {
			return wi > wj
		}
		return ranked[i] < ranked[j]
	})

	return GenreInfo{
		PrimaryGenre: ranked[0],
		OtherGenres:  ranked[1:],
		Source:       SourceKeyword,
	}
}
