package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

const (
	NamesFile  = "names.yaml"
	GenresFile = "genres.yaml"
	VenuesFile = "venues.yaml"
)

// Set is the complete rule configuration: name fixes, genre tables, and the venue registry
type Set struct {
	Names  Names
	Genres Genres
	Venues []VenueConfig
}

// Names holds literal title and artist corrections
type Names struct {
	Corrections   map[string]string `yaml:"corrections"`    // lowercased name → canonical name
	TourOverrides []TourOverride    `yaml:"tour_overrides"` // title fragment → headliner
	PartyKeywords []string          `yaml:"party_keywords"`
	PartyGenre    string            `yaml:"party_genre"`
	SpotifyIDs    map[string]string `yaml:"spotify_ids"` // lowercased artist → Spotify artist ID
}

// TourOverride resolves a known ambiguous tour title to its real headliner
type TourOverride struct {
	Match     string   `yaml:"match"`
	Headliner string   `yaml:"headliner"`
	Openers   []string `yaml:"openers"`
}

// Genres holds the weight table and the keyword scoring tables
type Genres struct {
	Weights                map[string]int      `yaml:"weights"`
	Keywords               map[string][]string `yaml:"keywords"`
	PriorityPatterns       []PatternBoost      `yaml:"priority_patterns"`
	SuspiciousNamePatterns []PatternBoost      `yaml:"suspicious_name_patterns"`
}

// PatternBoost adds Boost to Genre's score when Pattern matches
type PatternBoost struct {
	Pattern string `yaml:"pattern"`
	Genre   string `yaml:"genre"`
	Boost   int    `yaml:"boost"`

	re *regexp.Regexp
}

// Regexp returns the compiled pattern
func (p *PatternBoost) Regexp() *regexp.Regexp {
	return p.re
}

// Fetch modes for venue pages
const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

// Extraction modes
const (
	ModeLive             = "live"
	ModeStatic           = "static"
	ModeLiveWithFallback = "live-with-fallback"
)

// VenueConfig describes how to extract events from one venue's calendar page
type VenueConfig struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	URL          string        `yaml:"url"`
	Fetch        string        `yaml:"fetch"`
	Mode         string        `yaml:"mode"`
	Hooks        []string      `yaml:"hooks"`
	WaitFor      string        `yaml:"wait_for"`
	Settle       time.Duration `yaml:"settle"`
	Containers   []string      `yaml:"containers"`
	Fields       FieldConfig   `yaml:"fields"`
	StaticEvents []StaticEvent `yaml:"static_events"`
}

// FieldConfig holds the ordered fallback chain for each event field
type FieldConfig struct {
	Name        []FieldRule `yaml:"name"`
	Date        []FieldRule `yaml:"date"`
	Time        []FieldRule `yaml:"time"`
	Description []FieldRule `yaml:"description"`
	URL         []FieldRule `yaml:"url"`
	Performers  []FieldRule `yaml:"performers"`
	Genres      []FieldRule `yaml:"genres"`
}

// FieldRule selects a node relative to the event container and reads its text or an attribute.
// In YAML it is written as "selector" or "selector@attr".
type FieldRule struct {
	Selector string
	Attr     string
}

// UnmarshalYAML parses the "selector@attr" shorthand
func (r *FieldRule) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("field rule must be a string: %w", err)
	}
	*r = ParseFieldRule(s)
	return nil
}

// ParseFieldRule splits "a.ticket@href" into selector and attribute.
// A leading "@" ("@self", "@firstline") is a pseudo selector, not an attribute,
// so "@self@href" reads href from the container itself.
func ParseFieldRule(s string) FieldRule {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i > 0 {
		return FieldRule{Selector: strings.TrimSpace(s[:i]), Attr: strings.TrimSpace(s[i+1:])}
	}
	return FieldRule{Selector: s}
}

// StaticEvent is a placeholder listing for venues without a usable calendar.
// Either Date is set, or Weekday plus Weeks generate the next occurrences.
type StaticEvent struct {
	Name        string   `yaml:"name"`
	Date        string   `yaml:"date"`
	Weekday     string   `yaml:"weekday"`
	Weeks       int      `yaml:"weeks"`
	Time        string   `yaml:"time"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Performers  []string `yaml:"performers"`
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the embedded rule set. It panics if the embedded files are invalid,
// which can only happen through a bad build.
func Default() *Set {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultSet, defaultErr = LoadFS(sub)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("loading embedded rules: %v", defaultErr))
	}
	return defaultSet
}

// Load reads the rule files from dir. An empty dir returns the embedded defaults.
// Files missing from dir fall back to their embedded version.
func Load(dir string) (*Set, error) {
	if dir == "" {
		return Default(), nil
	}
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("opening embedded rules: %w", err)
	}
	return LoadFS(overlayFS{primary: os.DirFS(dir), fallback: sub})
}

// LoadFS reads and validates the three rule files from fsys
func LoadFS(fsys fs.FS) (*Set, error) {
	set := &Set{}

	if err := decodeFile(fsys, NamesFile, &set.Names); err != nil {
		return nil, err
	}
	if err := decodeFile(fsys, GenresFile, &set.Genres); err != nil {
		return nil, err
	}

	var venues struct {
		Venues []VenueConfig `yaml:"venues"`
	}
	if err := decodeFile(fsys, VenuesFile, &venues); err != nil {
		return nil, err
	}
	set.Venues = venues.Venues

	if err := set.prepare(); err != nil {
		return nil, err
	}
	return set, nil
}

func decodeFile(fsys fs.FS, name string, out interface{}) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// prepare normalizes keys, compiles patterns, fills defaults, and validates the registry
func (s *Set) prepare() error {
	s.Names.Corrections = lowerKeys(s.Names.Corrections)
	s.Names.SpotifyIDs = lowerKeys(s.Names.SpotifyIDs)
	if s.Names.PartyGenre == "" {
		s.Names.PartyGenre = "Special Event"
	}

	weights := make(map[string]int, len(s.Genres.Weights))
	for genre, w := range s.Genres.Weights {
		weights[strings.ToLower(genre)] = w
	}
	s.Genres.Weights = weights

	for i := range s.Genres.PriorityPatterns {
		if err := compilePattern(&s.Genres.PriorityPatterns[i]); err != nil {
			return err
		}
	}
	for i := range s.Genres.SuspiciousNamePatterns {
		if err := compilePattern(&s.Genres.SuspiciousNamePatterns[i]); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(s.Venues))
	for i := range s.Venues {
		v := &s.Venues[i]
		if v.ID == "" || v.Name == "" {
			return fmt.Errorf("venue %d: id and name are required", i)
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate venue id: %s", v.ID)
		}
		seen[v.ID] = true

		if v.Fetch == "" {
			v.Fetch = FetchHTTP
		}
		if v.Fetch != FetchHTTP && v.Fetch != FetchBrowser {
			return fmt.Errorf("venue %s: unknown fetch mode %q", v.ID, v.Fetch)
		}
		if v.Mode == "" {
			v.Mode = ModeLive
		}
		switch v.Mode {
		case ModeLive, ModeLiveWithFallback:
			if v.URL == "" {
				return fmt.Errorf("venue %s: url is required for mode %s", v.ID, v.Mode)
			}
		case ModeStatic:
			if len(v.StaticEvents) == 0 {
				return fmt.Errorf("venue %s: static mode needs static_events", v.ID)
			}
		default:
			return fmt.Errorf("venue %s: unknown mode %q", v.ID, v.Mode)
		}
	}
	return nil
}

func compilePattern(p *PatternBoost) error {
	re, err := regexp.Compile("(?i)" + p.Pattern)
	if err != nil {
		return fmt.Errorf("compiling pattern %q: %w", p.Pattern, err)
	}
	p.re = re
	return nil
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// Venue returns the registry entry with the given ID
func (s *Set) Venue(id string) (VenueConfig, bool) {
	for _, v := range s.Venues {
		if v.ID == id {
			return v, true
		}
	}
	return VenueConfig{}, false
}

// Weight returns the priority weight of a genre, case-insensitively. Unknown genres weigh 0.
func (g Genres) Weight(genre string) int {
	return g.Weights[strings.ToLower(strings.TrimSpace(genre))]
}

// overlayFS serves files from primary and falls back to fallback when they are missing
type overlayFS struct {
	primary  fs.FS
	fallback fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if err == nil {
		return f, nil
	}
	return o.fallback.Open(name)
}
