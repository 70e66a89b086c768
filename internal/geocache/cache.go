// Package geocache keeps place-name resolutions across requests and process
// restarts. A Cache is an in-memory map guarded by a mutex, backed by an
// optional Store that is read once at start-up and rewritten after each
// resolution batch.
package geocache

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
)

// Store persists the whole cache mapping.
type Store interface {
	Load(ctx context.Context) (map[string]domain.Resolution, error)
	Save(ctx context.Context, entries map[string]domain.Resolution) error
}

// Cache maps place names to resolutions. Get distinguishes a miss (never
// looked up) from a cached Absent (looked up, nothing found).
type Cache struct {
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]domain.Resolution
	dirty   bool

	// saveMu serializes flushes so an older snapshot never lands after a newer one.
	saveMu sync.Mutex

	loaded atomic.Bool
}

// New creates a cache persisted through store. Call Load before use.
func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{
		store:   store,
		logger:  logger,
		entries: make(map[string]domain.Resolution),
	}
}

// NewMemory creates a volatile cache that never touches durable storage.
func NewMemory(logger *slog.Logger) *Cache {
	c := New(nil, logger)
	c.loaded.Store(true)
	return c
}

// Load replaces the in-memory entries with the store's contents. A missing
// or unreadable store leaves the cache empty; the error is logged, not returned.
func (c *Cache) Load(ctx context.Context) {
	defer c.loaded.Store(true)
	if c.store == nil {
		return
	}

	entries, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("geocode cache load failed, starting empty", "error", err)
		entries = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.Resolution, len(entries))
	maps.Copy(c.entries, entries)
	c.dirty = false
	c.logger.Info("geocode cache loaded", "entries", len(c.entries))
}

// Get returns the cached resolution for name and whether one exists.
func (c *Cache) Get(name string) (domain.Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[name]
	return r, ok
}

// Put records a resolution. An Absent result never replaces a cached
// success; Put reports whether the entry was written.
func (c *Cache) Put(name string, r domain.Resolution) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[name]; ok {
		if prev.Found && !r.Found {
			return false
		}
		if prev == r {
			return true
		}
	}
	c.entries[name] = r
	c.dirty = true
	return true
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of all entries.
func (c *Cache) Snapshot() map[string]domain.Resolution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.entries)
}

// Flush writes the cache to its store if anything changed since the last
// successful flush. Failures are logged and returned for metrics only;
// callers must not fail a request on them.
func (c *Cache) Flush(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	snapshot := maps.Clone(c.entries)
	c.mu.RUnlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		c.logger.Warn("geocode cache flush failed", "error", err, "entries", len(snapshot))
		return err
	}

	c.mu.Lock()
	// Entries written while saving keep the cache dirty for the next flush.
	if len(c.entries) == len(snapshot) && maps.Equal(c.entries, snapshot) {
		c.dirty = false
	}
	c.mu.Unlock()
	return nil
}

// CheckReadiness reports ready once Load has completed.
func (c *Cache) CheckReadiness(_ context.Context) error {
	if !c.loaded.Load() {
		return errors.New("geocode cache not loaded")
	}
	return nil
}
