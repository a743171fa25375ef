// ABOUTME: In-memory ordered collection of one entity type
// ABOUTME: Populated by full reloads from the backing store; the last load to finish wins

package entity

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pagen-admin/store"
)

// Cache holds the full, unfiltered set of entities for one collection.
type Cache[T Entity] struct {
	repo   store.Repository
	codec  *Codec[T]
	logger *log.Logger

	mu       sync.RWMutex
	items    []T
	err      error
	inflight int
	loadedAt time.Time
	skipped  int
}

// NewCache creates an empty cache over repo.
func NewCache[T Entity](repo store.Repository, codec *Codec[T], logger *log.Logger) *Cache[T] {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cache[T]{repo: repo, codec: codec, logger: logger}
}

// Collection is the storage collection behind the cache.
func (c *Cache[T]) Collection() string {
	return c.codec.Mapping().Collection()
}

// Codec returns the cache's entity codec.
func (c *Cache[T]) Codec() *Codec[T] { return c.codec }

// Repository returns the backing store for the collection.
func (c *Cache[T]) Repository() store.Repository { return c.repo }

// Load replaces the whole collection with the backing store's list. On
// failure the previous items are kept and the error is retained for Err.
// Records that fail to decode are skipped and logged.
func (c *Cache[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	records, err := c.repo.List(ctx)

	var items []T
	skipped := 0
	if err == nil {
		items = make([]T, 0, len(records))
		for _, rec := range records {
			item, decodeErr := c.codec.Decode(rec)
			if decodeErr != nil {
				skipped++
				c.logger.Warn("skipping undecodable record", "collection", c.Collection(), "err", decodeErr)
				continue
			}
			items = append(items, item)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--

	if err != nil {
		c.err = fmt.Errorf("load %s: %w: %w", c.Collection(), ErrStore, err)
		return c.err
	}

	c.items = items
	c.err = nil
	c.skipped = skipped
	c.loadedAt = time.Now()
	return nil
}

// Items returns a copy of the cached entities in cache order.
func (c *Cache[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len is the number of cached entities.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get looks up an entity by identity.
func (c *Cache[T]) Get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.Identity() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Err is the error from the most recent failed load, cleared by a successful one.
func (c *Cache[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Loading reports whether any load is outstanding.
func (c *Cache[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// LoadedAt is when the last successful load finished; zero before the first.
func (c *Cache[T]) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Skipped counts records dropped by the last successful load.
func (c *Cache[T]) Skipped() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skipped
}

// Replace swaps the cache contents without a load, used by tests and by
// callers that already hold a fresh list.
func (c *Cache[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
	c.err = nil
}

func (c *Cache[T]) prepend(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T{item}, c.items...)
}

func (c *Cache[T]) replace(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Identity() == item.Identity() {
			c.items[i] = item
			return true
		}
	}
	return false
}

func (c *Cache[T]) remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Identity() == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}
