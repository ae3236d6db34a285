// Package cache provides a thread-safe LRU cache for compiled Metapath expressions.
//
// The cache is used by the evaluator when the WithCaching option is enabled
// and by functions that compile expressions at run time, such as
// meta:recurse-depth. Entries are keyed by the expression source and the
// fingerprint of the static context it was compiled in, so the same text
// compiled under different namespace bindings is cached separately.
//
// # Example
//
//	c := cache.New(1024)
//	expr, err := c.GetOrCompile(cache.Key("//control[@id]", sc), func() (*cst.Expression, error) {
//	    return parser.Compile("//control[@id]", sc)
//	})
package cache

import (
	"container/list"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/wandmagic/metapath/pkg/cst"
	"github.com/wandmagic/metapath/pkg/static"
)

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key  string
	expr *cst.Expression
}

// Stats reports cache activity since creation.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a thread-safe LRU (Least Recently Used) cache for compiled expressions.
// Once the capacity is reached, the least recently accessed entry is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
	group    singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Key returns the cache key of source compiled in sc.
func Key(source string, sc *static.Context) string {
	if sc == nil {
		sc = static.Default()
	}
	return strconv.FormatUint(sc.Fingerprint(), 16) + "\x00" + source
}

// Get retrieves a compiled expression from the cache.
// Returns (expr, true) if found and moves the entry to front (MRU).
// Returns (nil, false) if not present.
func (c *Cache) Get(key string) (*cst.Expression, bool) {
	c.mu.RLock()
	el, ok := c.items[key]
	// Skip the write lock when the entry is already the most recent.
	alreadyFront := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if !alreadyFront {
		// Promote under the write lock; the entry may have been evicted meanwhile.
		c.mu.Lock()
		el, ok = c.items[key]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()

		if !ok {
			c.misses.Add(1)
			return nil, false
		}
	}
	c.hits.Add(1)
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces an expression in the cache.
// If at capacity, the least recently used entry is evicted first.
func (c *Cache) Set(key string, expr *cst.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, expr: expr})
	c.items[key] = el
}

// GetOrCompile retrieves the expression for key from cache, or calls compile()
// to create it, caches the result, and returns it.
// Concurrent callers missing on the same key share one compile call.
// Errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*cst.Expression, error)) (*cst.Expression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		expr, err := compile()
		if err != nil {
			return nil, err
		}
		c.Set(key, expr)
		return expr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cst.Expression), nil
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns the hit, miss and eviction counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Invalidate removes a single entry from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
	c.evictions.Add(1)
}
