package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Configuration errors returned by New.
var (
	// ErrInvalidCapacity is returned when the byte capacity is zero or negative.
	ErrInvalidCapacity = errors.New("cache capacity must be positive")

	// ErrInvalidMaxEntries is returned when the entry cap is zero or negative.
	ErrInvalidMaxEntries = errors.New("cache max entries must be positive")
)

// entrySizeOverhead approximates the bookkeeping cost of one entry beyond
// its key and payload bytes.
const entrySizeOverhead = 64

// Config holds cache construction parameters.
type Config struct {
	// CapacityBytes bounds the total estimated size of all entries.
	CapacityBytes int64

	// MaxEntries bounds the entry count independently of byte size.
	MaxEntries int
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	Entries     int   `json:"entries"`
	Bytes       int64 `json:"bytes"`
}

// entry is one cached stage payload with its TTL bookkeeping.
type entry struct {
	payload    []byte
	insertedAt time.Time
	lastAccess time.Time
	ttl        time.Duration
	size       int64
}

// Cache is a thread-safe LRU with per-entry TTL and a byte-size capacity.
// Recency ordering comes from hashicorp's simplelru; TTL expiry is lazy
// (checked on Get) and byte accounting is layered on top, with eviction
// running synchronously on Set whenever the capacity would be exceeded.
//
// Storage failures never propagate: the cache fails open and the pipeline
// treats the lookup as a miss.
type Cache struct {
	mu sync.Mutex

	lru      *simplelru.LRU[string, *entry]
	capacity int64
	bytes    int64

	hits        int64
	misses      int64
	evictions   int64
	expirations int64

	logger *slog.Logger

	// now is the clock source, injectable for tests.
	now func() time.Time
}

// Option customizes Cache construction.
type Option func(*Cache)

// WithClock overrides the cache's clock source. Used by tests to simulate
// TTL expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache with the given capacity. Invalid parameters fail here,
// at construction.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Cache, error) {
	if cfg.CapacityBytes <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, cfg.CapacityBytes)
	}
	if cfg.MaxEntries <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxEntries, cfg.MaxEntries)
	}

	c := &Cache{
		capacity: cfg.CapacityBytes,
		logger:   logger,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	lru, err := simplelru.NewLRU[string, *entry](cfg.MaxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating LRU: %w", err)
	}
	c.lru = lru

	return c, nil
}

// onEvict keeps the byte count in sync when the LRU drops an entry.
// Called with c.mu held, from inside lru.Add/RemoveOldest/Remove.
func (c *Cache) onEvict(key string, e *entry) {
	c.bytes -= e.size
}

// Get returns the payload for key if it is present and not expired. An
// expired entry is removed and reported as a miss. A successful Get
// refreshes the entry's recency and last-access timestamp.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}

	now := c.now()
	if c.expiredLocked(e, now) {
		c.lru.Remove(key)
		c.expirations++
		c.misses++
		return nil, false
	}

	e.lastAccess = now
	c.hits++
	return e.payload, true
}

// Set inserts or overwrites the payload for key with the given TTL, then
// evicts least-recently-used entries until the byte capacity holds. A
// payload that alone exceeds the capacity is not stored; the failure is
// logged and the cache stays consistent.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) {
	size := int64(len(key)+len(payload)) + entrySizeOverhead
	if size > c.capacity {
		c.logger.Warn("cache entry exceeds total capacity, not storing",
			"key", key,
			"entry_bytes", size,
			"capacity_bytes", c.capacity)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e := &entry{
		payload:    payload,
		insertedAt: now,
		lastAccess: now,
		ttl:        ttl,
		size:       size,
	}

	// Add replaces an existing entry for the same key; onEvict has already
	// credited the old size back by the time Add returns.
	if evicted := c.lru.Add(key, e); evicted {
		c.evictions++
	}
	c.bytes += size

	for c.bytes > c.capacity {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
		c.evictions++
	}
}

// EvictExpired removes every entry whose TTL has elapsed and returns the
// number removed. Expiry is lazy on Get, so this sweep is purely memory
// hygiene for keys that are never read again.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if c.expiredLocked(e, now) {
			c.lru.Remove(key)
			c.expirations++
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Entries:     c.lru.Len(),
		Bytes:       c.bytes,
	}
}

// expiredLocked reports whether e's TTL has elapsed. A zero TTL means the
// entry never expires. Callers must hold c.mu.
func (c *Cache) expiredLocked(e *entry, now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.insertedAt) > e.ttl
}
