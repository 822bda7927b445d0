package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/proprogresja/venue-events/internal/event"
)

// File names inside the data directory
const (
	snapshotPrefix = "scrape-"
	snapshotExt    = ".json"
	EnrichedFile   = "enriched-events.json"
	GenreCacheFile = "genre-cache.json"
)

// Snapshot timestamps use fixed-width nanoseconds so names sort chronologically
const snapshotLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Errors returned by Storage
var (
	ErrNoSnapshot    = errors.New("no snapshot found")
	ErrEventNotFound = errors.New("event not found")
)

// Snapshot is one persisted scrape run
type Snapshot struct {
	Path      string
	Timestamp time.Time
	Results   []*event.ScraperResult
}

// Events returns every event in the snapshot, in result order
func (s *Snapshot) Events() []*event.ScrapedEvent {
	return event.Flatten(s.Results)
}

// Storage handles persistence of scrape snapshots and derived caches
type Storage struct {
	dataDir string
	now     func() time.Time
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
		now:     time.Now,
	}, nil
}

// DataDir returns the resolved data directory
func (s *Storage) DataDir() string {
	return s.dataDir
}

// GenreCachePath is where the file-backed genre cache lives
func (s *Storage) GenreCachePath() string {
	return filepath.Join(s.dataDir, GenreCacheFile)
}

func (s *Storage) enrichedPath() string {
	return filepath.Join(s.dataDir, EnrichedFile)
}

// snapshotName builds scrape-<timestamp>.json with ':' and '.' replaced by '-'
func snapshotName(t time.Time) string {
	stamp := t.UTC().Format(snapshotLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return snapshotPrefix + stamp + snapshotExt
}

// SnapshotTime recovers the timestamp from a snapshot file name
func SnapshotTime(name string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(name), snapshotPrefix), snapshotExt)
	if len(stamp) < 19 {
		return time.Time{}, false
	}

	t, err := time.Parse("2006-01-02T15-04-05", stamp[:19])
	if err != nil {
		return time.Time{}, false
	}

	// optional "-<nanos>" before the zone
	rest := strings.TrimSuffix(stamp[19:], "Z")
	if strings.HasPrefix(rest, "-") {
		frac := rest[1:]
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		if nanos, err := strconv.Atoi(frac); err == nil {
			t = t.Add(time.Duration(nanos))
		}
	}
	return t.UTC(), true
}

// SaveSnapshot writes results to a new timestamped file and returns its path.
// Existing snapshots are never modified.
func (s *Storage) SaveSnapshot(results []*event.ScraperResult) (string, error) {
	if results == nil {
		results = []*event.ScraperResult{}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	path := filepath.Join(s.dataDir, snapshotName(s.now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	return path, nil
}

// ListSnapshots returns snapshot paths, newest first
func (s *Storage) ListSnapshots() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, snapshotPrefix+"*"+snapshotExt))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// LatestSnapshot loads the newest snapshot. It returns ErrNoSnapshot when none exists.
func (s *Storage) LatestSnapshot() (*Snapshot, error) {
	paths, err := s.ListSnapshots()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoSnapshot
	}
	return s.LoadSnapshot(paths[0])
}

// LoadSnapshot reads one snapshot file
func (s *Storage) LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var results []*event.ScraperResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", filepath.Base(path), err)
	}

	ts, ok := SnapshotTime(path)
	if !ok {
		if info, statErr := os.Stat(path); statErr == nil {
			ts = info.ModTime().UTC()
		}
	}

	return &Snapshot{Path: path, Timestamp: ts, Results: results}, nil
}

// GetEventByID finds an event in the latest snapshot
func (s *Storage) GetEventByID(eventID string) (*event.ScrapedEvent, *event.ScraperResult, error) {
	snapshot, err := s.LatestSnapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	for _, res := range snapshot.Results {
		for _, evt := range res.Events {
			if evt.ID == eventID {
				return evt, res, nil
			}
		}
	}

	return nil, nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
}

// LoadEnriched reads the enriched events cache. A missing file yields nil, nil.
func (s *Storage) LoadEnriched() ([]*event.EnrichedEvent, error) {
	data, err := os.ReadFile(s.enrichedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading enriched events: %w", err)
	}

	var events []*event.EnrichedEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing enriched events: %w", err)
	}
	return events, nil
}

// SaveEnriched overwrites the enriched events cache
func (s *Storage) SaveEnriched(events []*event.EnrichedEvent) error {
	if events == nil {
		events = []*event.EnrichedEvent{}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding enriched events: %w", err)
	}

	if err := os.WriteFile(s.enrichedPath(), data, 0644); err != nil {
		return fmt.Errorf("writing enriched events: %w", err)
	}
	return nil
}
