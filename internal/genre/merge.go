package genre

import (
	"sort"
	"strings"

	"github.com/proprogresja/venue-events/internal/rules"
)

// Merge combines the answers of several sources into one GenreInfo.
//
// Every genre is title-cased and deduplicated case-insensitively in first-seen
// order. The primary is the genre with the highest weight; equal weights go to
// the alphabetically first name, so the result does not depend on which source
// answered first. Nil infos are skipped. With no genres at all the default
// Unknown result is returned.
func Merge(weights rules.Genres, infos ...*GenreInfo) GenreInfo {
	var (
		genres      []string
		seen        = make(map[string]bool)
		contributed = make(map[SourceName]bool)
		lastSource  SourceName
	)

	add := func(g string) {
		g = TitleCase(g)
		key := strings.ToLower(g)
		if g == "" || key == strings.ToLower(Unknown) || seen[key] {
			return
		}
		seen[key] = true
		genres = append(genres, g)
	}

	for _, info := range infos {
		if info == nil || !hasGenre(info) {
			continue
		}
		contributed[info.Source] = true
		lastSource = info.Source
		add(info.PrimaryGenre)
		for _, g := range info.OtherGenres {
			add(g)
		}
	}

	if len(genres) == 0 {
		return DefaultInfo()
	}

	ranked := rank(weights, genres)
	primary := ranked[0]

	others := make([]string, 0, len(genres)-1)
	for _, g := range genres {
		if g != primary {
			others = append(others, g)
		}
	}

	source := lastSource
	if len(contributed) > 1 {
		source = SourceCombined
	}

	return GenreInfo{
		PrimaryGenre: primary,
		OtherGenres:  others,
		Source:       source,
		Style:        style(primary, ranked),
	}
}

func hasGenre(info *GenreInfo) bool {
	for _, g := range append([]string{info.PrimaryGenre}, info.OtherGenres...) {
		if g = strings.TrimSpace(g); g != "" && !strings.EqualFold(g, Unknown) {
			return true
		}
	}
	return false
}

// rank orders genres by weight, highest first, then alphabetically
func rank(weights rules.Genres, genres []string) []string {
	ranked := append([]string(nil), genres...)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := weights.Weight(ranked[i]), weights.Weight(ranked[j])
		if wi != wj {
			return wi > wj
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}

// style picks the most specific tag: the best ranked other genre that contains
// every word of the primary, else the second ranked genre.
func style(primary string, ranked []string) string {
	words := strings.Fields(strings.ToLower(primary))
	for _, g := range ranked[1:] {
		lower := strings.ToLower(g)
		match := true
		for _, w := range words {
			if !strings.Contains(lower, w) {
				match = false
				break
			}
		}
		if match {
			return g
		}
	}
	if len(ranked) > 1 {
		return ranked[1]
	}
	return ""
}
