package performer

import (
	"regexp"
	"strings"

	"github.com/proprogresja/venue-events/internal/rules"
)

// Result is a parsed event title
type Result struct {
	Headliner string
	Openers   []string
}

// Performers returns the headliner followed by the openers
func (r Result) Performers() []string {
	if r.Headliner == "" {
		return []string{}
	}
	out := make([]string, 0, 1+len(r.Openers))
	out = append(out, r.Headliner)
	return append(out, r.Openers...)
}

// Parser splits raw event titles into performers using a fixed separator cascade
type Parser struct {
	corrections   map[string]string
	overrides     []rules.TourOverride
	partyKeywords []string
}

// New creates a parser from the name tables
func New(names rules.Names) *Parser {
	p := &Parser{
		corrections: make(map[string]string, len(names.Corrections)),
		overrides:   names.TourOverrides,
	}
	for k, v := range names.Corrections {
		p.corrections[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for _, kw := range names.PartyKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			p.partyKeywords = append(p.partyKeywords, kw)
		}
	}
	return p
}

// strategy is one entry of the separator cascade. split returns the billing
// with the headliner first, or false when the separator is absent. A resplit
// strategy hands its single remaining part back to the cascade.
type strategy struct {
	name    string
	split   func(title string) ([]string, bool)
	resplit bool
}

var (
	withPattern     = regexp.MustCompile(`(?i)\s+(?:with|w/)\s+`)
	featPattern     = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.|featuring)\s+`)
	slashPattern    = regexp.MustCompile(`\s+/\s*|\s*/\s+`)
	commaPattern    = regexp.MustCompile(`\s*,\s*`)
	plusPattern     = regexp.MustCompile(`\s+\+\s+`)
	colonPattern    = regexp.MustCompile(`^(.+?):\s+(.+)$`)
	presentsPattern = regexp.MustCompile(`(?i)^(.+?)\s+presents:?\s+(.+)$`)
	quotedTour      = regexp.MustCompile(`^(.+?)\s*[-–—]\s*["“'‘].*$`)
	tourSuffix      = regexp.MustCompile(`(?i)\s+(?:(?:19|20)\d{2}\s+)?tour(?:\s+(?:19|20)\d{2})?$`)

	// Openers inside a "with" or "feat." clause
	openerSeparator = regexp.MustCompile(`(?i)\s*,\s*|\s+&\s+|\s+and\s+|\s*\+\s*`)
)

// strategies is evaluated in order, first match wins
var strategies = []strategy{
	{name: "with", split: func(title string) ([]string, bool) {
		return splitHeadlinerClause(withPattern, title)
	}},
	{name: "featuring", split: func(title string) ([]string, bool) {
		return splitHeadlinerClause(featPattern, title)
	}},
	{name: "slash", split: func(title string) ([]string, bool) {
		return splitAll(slashPattern, title)
	}},
	{name: "comma", split: func(title string) ([]string, bool) {
		return splitAll(commaPattern, title)
	}},
	{name: "plus", split: func(title string) ([]string, bool) {
		return splitAll(plusPattern, title)
	}},
	{name: "colon", split: func(title string) ([]string, bool) {
		m := colonPattern.FindStringSubmatch(title)
		if m == nil || strings.HasSuffix(strings.ToLower(m[1]), "presents") {
			return nil, false
		}
		return []string{m[1]}, true
	}},
	{name: "presents", split: func(title string) ([]string, bool) {
		m := presentsPattern.FindStringSubmatch(title)
		if m == nil {
			return nil, false
		}
		return []string{m[2]}, true
	}, resplit: true},
	{name: "quoted-tour", split: func(title string) ([]string, bool) {
		m := quotedTour.FindStringSubmatch(title)
		if m == nil {
			return nil, false
		}
		return []string{m[1]}, true
	}},
	{name: "tour-suffix", split: func(title string) ([]string, bool) {
		if !tourSuffix.MatchString(title) {
			return nil, false
		}
		name := tourSuffix.ReplaceAllString(title, "")
		if strings.TrimSpace(name) == "" {
			return nil, false
		}
		return []string{name}, true
	}},
}

// Prefixes and tags that are never part of a performer name
var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(?:sold out|canceled|cancelled|postponed|rescheduled|new date|moved to [^:!]+)\s*[:!\-–—]\s*`),
	regexp.MustCompile(`(?i)^\s*(?:an intimate evening with|an evening with|a night with)\s+`),
	regexp.MustCompile(`(?i)[\(\[]\s*(?:all ages|18\+|21\+|free|sold out|seated|standing)\s*[\)\]]`),
}

// Parse splits a raw title into headliner and openers
func (p *Parser) Parse(rawTitle string) Result {
	title := collapseSpace(rawTitle)
	if title == "" {
		return Result{}
	}

	lower := strings.ToLower(title)
	for _, o := range p.overrides {
		if o.Match != "" && strings.Contains(lower, strings.ToLower(o.Match)) {
			return Result{Headliner: o.Headliner, Openers: append([]string{}, o.Openers...)}
		}
	}

	parts := p.split(title)
	if len(parts) == 0 {
		return Result{}
	}

	headliner := p.Clean(parts[0])
	if headliner == "" {
		headliner = p.Clean(title)
	}

	var openers []string
	for _, part := range parts[1:] {
		if name := p.Clean(part); name != "" {
			openers = append(openers, name)
		}
	}

	return Result{Headliner: headliner, Openers: collapseOpeners(headliner, openers)}
}

// split strips title noise and runs the separator cascade
func (p *Parser) split(title string) []string {
	for _, re := range titleNoise {
		title = re.ReplaceAllString(title, "")
	}
	title = collapseSpace(title)
	if title == "" {
		return nil
	}

	for _, s := range strategies {
		parts, ok := s.split(title)
		if !ok || len(parts) == 0 {
			continue
		}
		if s.resplit {
			return p.split(parts[0])
		}
		return parts
	}
	return []string{title}
}

var (
	presenterPrefix = regexp.MustCompile(`(?i)^.+?\s+presents:?\s+`)
	quotedTourName  = regexp.MustCompile(`(?i)["“'‘][^"”'’]*\btour\b[^"”'’]*["”'’]`)
	dashSuffix      = regexp.MustCompile(`\s+[-–—]\s+`)
	suffixMarker    = regexp.MustCompile(`(?i)'\d{2}\b|’\d{2}\b|\b(?:19|20)\d{2}\b|\btour\b|\blive\b|\bconcert\b`)
	bareSuffix      = regexp.MustCompile(`(?i)[\s\-–—:,]+(?:tour|live|concert)$`)
	edgePunct       = "-–—:,;|·•"
)

// StripPresenter removes a leading "Promoter presents:" from title. A title that is
// nothing but the presenter comes back unchanged.
func StripPresenter(title string) string {
	if rest := strings.TrimSpace(presenterPrefix.ReplaceAllString(title, "")); rest != "" {
		return rest
	}
	return title
}

// Clean strips presenters, tour names, year suffixes, and generic labels from a
// performer name, then applies the literal corrections table
func (p *Parser) Clean(name string) string {
	name = collapseSpace(name)
	if name == "" {
		return ""
	}
	original := name

	name = StripPresenter(name)
	name = quotedTourName.ReplaceAllString(name, "")

	// Cut at the first spaced dash whose suffix names a tour, a year, or a live date
	if locs := dashSuffix.FindAllStringIndex(name, -1); locs != nil {
		for _, loc := range locs {
			if suffixMarker.MatchString(name[loc[1]:]) {
				name = name[:loc[0]]
				break
			}
		}
	}

	for {
		stripped := bareSuffix.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}

	name = collapseSpace(strings.Trim(name, edgePunct+" "))
	if name == "" {
		name = original
	}

	if fixed, ok := p.corrections[strings.ToLower(name)]; ok {
		return fixed
	}
	return name
}

// IsParty reports whether a title is a party or non-band listing
func (p *Parser) IsParty(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range p.partyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// splitHeadlinerClause handles "A with B, C & D": the left side is the headliner
// and the right side is a list of openers
func splitHeadlinerClause(sep *regexp.Regexp, title string) ([]string, bool) {
	loc := sep.FindStringIndex(title)
	if loc == nil || loc[0] == 0 {
		return nil, false
	}
	headliner := title[:loc[0]]
	parts := []string{headliner}
	for _, o := range openerSeparator.Split(title[loc[1]:], -1) {
		if o = strings.TrimSpace(o); o != "" {
			parts = append(parts, o)
		}
	}
	return parts, true
}

// splitAll splits on every separator; each piece is a performer
func splitAll(sep *regexp.Regexp, title string) ([]string, bool) {
	if !sep.MatchString(title) {
		return nil, false
	}
	var parts []string
	for _, s := range sep.Split(title, -1) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) < 2 {
		return nil, false
	}
	return parts, true
}

// collapseOpeners drops openers equal to the headliner and openers contained
// in a longer opener
func collapseOpeners(headliner string, openers []string) []string {
	out := []string{}
	lowerHead := strings.ToLower(headliner)

	for i, o := range openers {
		lo := strings.ToLower(o)
		if lo == lowerHead {
			continue
		}
		redundant := false
		for j, other := range openers {
			if i == j {
				continue
			}
			lother := strings.ToLower(other)
			if lother == lo && j < i {
				redundant = true
				break
			}
			if len(lother) > len(lo) && strings.Contains(lother, lo) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, o)
		}
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// strategyFor reports which cascade entry splits title, or "default"
func strategyFor(title string) string {
	title = collapseSpace(title)
	for _, s := range strategies {
		if parts, ok := s.split(title); ok && len(parts) > 0 {
			return s.name
		}
	}
	return "default"
}
