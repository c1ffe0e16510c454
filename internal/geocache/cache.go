package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

type Entry struct {
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
}

// Cache maps rounded coordinates to city names. The whole map is persisted as one JSON
// document in the storage layer.
type Cache struct {
	store   storage.Storage
	file    string
	ttl     time.Duration
	entries *xsync.MapOf[string, Entry]
	dirty   *xsync.Counter
	flushMu sync.Mutex
	now     func() time.Time
}

// Key rounds both coordinates to 4 decimals, roughly 11 m.
func Key(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// Load reads the cache document once. A missing document starts an empty cache, a corrupt
// one is logged and replaced on the next flush.
func Load(ctx context.Context, store storage.Storage, cfg config.GeocodeCache) (*Cache, error) {
	file := cfg.File
	if file == "" {
		file = config.DefaultGeocodeCacheFile
	}
	c := &Cache{
		store:   store,
		file:    file,
		ttl:     cfg.TTL,
		entries: xsync.NewMapOf[string, Entry](),
		dirty:   xsync.NewCounter(),
		now:     time.Now,
	}

	data, err := store.ReadFile(ctx, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read geocoding cache: %w", err)
	}

	var stored map[string]Entry
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("Geocoding cache is corrupt, starting empty", "file", file, "error", err)
		return c, nil
	}
	for k, v := range stored {
		c.entries.Store(k, v)
	}
	slog.Info("Loaded geocoding cache", "file", file, "entries", len(stored))
	return c, nil
}

func (c *Cache) Get(lat, lng float64) (Entry, bool) {
	entry, ok := c.entries.Load(Key(lat, lng))
	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && c.now().Sub(entry.Timestamp) > c.ttl {
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) Set(lat, lng float64, city string) {
	c.entries.Store(Key(lat, lng), Entry{City: city, Timestamp: c.now().UTC()})
	c.dirty.Inc()
}

func (c *Cache) Len() int {
	return c.entries.Size()
}

// Flush rewrites the cache document if anything changed since the last flush.
func (c *Cache) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	pending := c.dirty.Value()
	if pending == 0 {
		return nil
	}

	snapshot := make(map[string]Entry, c.entries.Size())
	c.entries.Range(func(k string, v Entry) bool {
		snapshot[k] = v
		return true
	})
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode geocoding cache: %w", err)
	}
	if err := c.store.WriteFile(ctx, c.file, data); err != nil {
		return fmt.Errorf("failed to write geocoding cache: %w", err)
	}
	c.dirty.Add(-pending)
	return nil
}
