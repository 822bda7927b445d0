package genre

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/proprogresja/venue-events/internal/logger"
)

// Cache stores GenreInfo by exact artist string
type Cache interface {
	Get(ctx context.Context, artist string) (GenreInfo, bool)
	Set(ctx context.Context, artist string, info GenreInfo) error
	Len(ctx context.Context) int
}

// MemoryCache keeps entries in process memory
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]GenreInfo
}

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]GenreInfo)}
}

// Get returns the cached entry for artist
func (c *MemoryCache) Get(_ context.Context, artist string) (GenreInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[artist]
	return info, ok
}

// Set stores info for artist
func (c *MemoryCache) Set(_ context.Context, artist string, info GenreInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[artist] = info
	return nil
}

// Len returns the number of entries
func (c *MemoryCache) Len(context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FileCache is a JSON object on disk, loaded once and rewritten in full on every Set
type FileCache struct {
	path    string
	mu      sync.Mutex
	entries map[string]GenreInfo
}

// NewFileCache opens the cache at path. A missing or corrupt file starts empty.
func NewFileCache(path string) *FileCache {
	c := &FileCache{path: path, entries: make(map[string]GenreInfo)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read genre cache, starting empty", logger.Fields{"path": path, "error": err.Error()})
		}
		return c
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Warn("Genre cache is corrupt, starting empty", logger.Fields{"path": path, "error": err.Error()})
		c.entries = make(map[string]GenreInfo)
	}
	return c
}

// Get returns the cached entry for artist
func (c *FileCache) Get(_ context.Context, artist string) (GenreInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[artist]
	return info, ok
}

// Set stores info for artist and rewrites the file
func (c *FileCache) Set(_ context.Context, artist string, info GenreInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[artist] = info

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genre cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing genre cache: %w", err)
	}
	return nil
}

// Len returns the number of entries
func (c *FileCache) Len(context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
