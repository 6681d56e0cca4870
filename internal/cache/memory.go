package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// janitorInterval is how often expired entries are swept.
const janitorInterval = time.Minute

// memoryCache is an LRU cache with per-entry TTL. Entries expire lazily on
// access and eagerly via a background sweep.
type memoryCache struct {
	logger     observability.Logger
	prefix     string
	maxEntries int
	defaultTTL time.Duration

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
	closed   bool

	stopCh chan struct{}
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func newMemoryCache(cfg *config.CacheConfig, logger observability.Logger) *memoryCache {
	c := &memoryCache{
		logger:     logger,
		prefix:     keyPrefix(cfg),
		maxEntries: cfg.GetEffectiveMaxEntries(),
		defaultTTL: cfg.GetEffectiveTTL().Duration(),
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.janitor()

	logger.Info("memory cache initialized",
		observability.Int("max_entries", c.maxEntries),
		observability.Duration("default_ttl", c.defaultTTL),
	)

	return c
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	elem, ok := c.items[c.prefix+key]
	if !ok {
		return nil, ErrCacheMiss
	}

	entry := elem.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		c.remove(elem)
		return nil, ErrCacheMiss
	}

	c.eviction.MoveToFront(elem)
	return entry.value, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	entry := &memoryEntry{key: c.prefix + key, value: value, expiresAt: expiresAt}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if elem, ok := c.items[entry.key]; ok {
		elem.Value = entry
		c.eviction.MoveToFront(elem)
		return nil
	}

	c.items[entry.key] = c.eviction.PushFront(entry)

	for c.eviction.Len() > c.maxEntries {
		c.remove(c.eviction.Back())
	}

	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if elem, ok := c.items[c.prefix+key]; ok {
		c.remove(elem)
	}
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}

	elem, ok := c.items[c.prefix+key]
	if !ok {
		return false, nil
	}
	if elem.Value.(*memoryEntry).expired(time.Now()) {
		c.remove(elem)
		return false, nil
	}
	return true, nil
}

// Close stops the janitor and drops all entries. Close is idempotent.
func (c *memoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.stopCh)

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	return nil
}

// Len reports the current number of entries.
func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// remove drops an element. Callers hold the lock.
func (c *memoryCache) remove(elem *list.Element) {
	if elem == nil {
		return
	}
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).key)
}

func (c *memoryCache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// sweep removes every expired entry in one pass under the lock.
func (c *memoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for elem := c.eviction.Back(); elem != nil; elem = next {
		next = elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			c.remove(elem)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("swept expired cache entries",
			observability.Int("removed", removed),
			observability.Int("remaining", c.eviction.Len()),
		)
	}
}
