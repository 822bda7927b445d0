package rules

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestDefault(t *testing.T) {
	set := Default()

	if len(set.Venues) != 12 {
		t.Fatalf("registry has %d venues, want 12", len(set.Venues))
	}

	wantOrder := []string{
		"the-camel", "the-broadberry", "the-national", "richmond-music-hall",
		"canal-club", "ember-music-hall", "gallery5", "fuzzy-cactus",
		"the-tin-pan", "cary-street-cafe", "wonderland", "the-hof",
	}
	for i, id := range wantOrder {
		if set.Venues[i].ID != id {
			t.Errorf("venue %d = %s, want %s", i, set.Venues[i].ID, id)
		}
	}

	if set.Names.PartyGenre == "" {
		t.Error("party genre should be set")
	}
	if len(set.Names.PartyKeywords) == 0 {
		t.Error("party keywords should be loaded")
	}
	if set.Genres.Weight("metal") <= set.Genres.Weight("Pop") {
		t.Error("Metal should outweigh Pop")
	}
	for _, p := range set.Genres.PriorityPatterns {
		if p.Regexp() == nil {
			t.Errorf("priority pattern %q not compiled", p.Pattern)
		}
	}
}

func TestDefaultVenueModes(t *testing.T) {
	set := Default()

	tests := []struct {
		id    string
		fetch string
		mode  string
		hook  string
	}{
		{"the-camel", FetchHTTP, ModeLive, "skip-private"},
		{"the-broadberry", FetchBrowser, ModeLive, ""},
		{"the-national", FetchHTTP, ModeLive, "jsonld"},
		{"richmond-music-hall", FetchHTTP, ModeLive, "presents"},
		{"canal-club", FetchHTTP, ModeLive, "url-date"},
		{"ember-music-hall", FetchBrowser, ModeLive, ""},
		{"fuzzy-cactus", FetchHTTP, ModeStatic, ""},
		{"cary-street-cafe", FetchHTTP, ModeLiveWithFallback, ""},
		{"wonderland", FetchHTTP, ModeStatic, ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			v, ok := set.Venue(tt.id)
			if !ok {
				t.Fatalf("venue %s not found", tt.id)
			}
			if v.Fetch != tt.fetch {
				t.Errorf("Fetch = %s, want %s", v.Fetch, tt.fetch)
			}
			if v.Mode != tt.mode {
				t.Errorf("Mode = %s, want %s", v.Mode, tt.mode)
			}
			if tt.hook != "" && !slices.Contains(v.Hooks, tt.hook) {
				t.Errorf("hook %s not enabled", tt.hook)
			}
		})
	}

	broadberry, _ := set.Venue("the-broadberry")
	if broadberry.Settle != 3*time.Second {
		t.Errorf("Settle = %v, want 3s", broadberry.Settle)
	}
}

func TestParseFieldRule(t *testing.T) {
	tests := []struct {
		in   string
		want FieldRule
	}{
		{"h2", FieldRule{Selector: "h2"}},
		{"a.url@href", FieldRule{Selector: "a.url", Attr: "href"}},
		{" time @ datetime ", FieldRule{Selector: "time", Attr: "datetime"}},
		{"@self", FieldRule{Selector: "@self"}},
		{"@firstline", FieldRule{Selector: "@firstline"}},
		{"@self@href", FieldRule{Selector: "@self", Attr: "href"}},
	}
	for _, tt := range tests {
		if got := ParseFieldRule(tt.in); got != tt.want {
			t.Errorf("ParseFieldRule(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFS_Validation(t *testing.T) {
	base := fstest.MapFS{
		NamesFile:  {Data: []byte("corrections:\n  Foo: Bar\n")},
		GenresFile: {Data: []byte("weights:\n  Metal: 10\n")},
	}

	tests := []struct {
		name    string
		venues  string
		wantErr string
	}{
		{
			name:   "valid",
			venues: "venues:\n  - id: a\n    name: A\n    url: https://a.example\n",
		},
		{
			name:    "duplicate id",
			venues:  "venues:\n  - id: a\n    name: A\n    url: u\n  - id: a\n    name: B\n    url: u\n",
			wantErr: "duplicate venue id",
		},
		{
			name:    "static without events",
			venues:  "venues:\n  - id: a\n    name: A\n    mode: static\n",
			wantErr: "static mode needs static_events",
		},
		{
			name:    "live without url",
			venues:  "venues:\n  - id: a\n    name: A\n",
			wantErr: "url is required",
		},
		{
			name:    "unknown fetch",
			venues:  "venues:\n  - id: a\n    name: A\n    url: u\n    fetch: carrier-pigeon\n",
			wantErr: "unknown fetch mode",
		},
		{
			name:    "bad yaml",
			venues:  "venues: [",
			wantErr: "parsing venues.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for k, v := range base {
				fsys[k] = v
			}
			fsys[VenuesFile] = &fstest.MapFile{Data: []byte(tt.venues)}

			set, err := LoadFS(fsys)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("LoadFS() error = %v", err)
				}
				if set.Names.Corrections["foo"] != "Bar" {
					t.Error("correction keys should be lowercased")
				}
				if set.Venues[0].Fetch != FetchHTTP || set.Venues[0].Mode != ModeLive {
					t.Error("fetch and mode defaults not applied")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFS() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	names := "party_keywords: [polka]\nparty_genre: Polka Party\n"
	if err := os.WriteFile(filepath.Join(dir, NamesFile), []byte(names), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	set, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Names.PartyGenre != "Polka Party" {
		t.Errorf("PartyGenre = %q, want override", set.Names.PartyGenre)
	}
	// venues.yaml and genres.yaml are not in dir, so the embedded copies are used
	if len(set.Venues) != 12 {
		t.Errorf("fallback registry has %d venues, want 12", len(set.Venues))
	}
}
