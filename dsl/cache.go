package dsl

import (
	"container/list"
	"sync"

	"github.com/filterql/filterql/internal/types"
)

// Cache is a thread-safe LRU over parsed-and-simplified FilterTrees,
// keyed by the expression's canonical tokenized form (whitespace-
// insensitive). The package keeps no global instance: each Cache built
// by NewCache is independent, and filterql.New gives every Pipeline its
// own.
//
// A maxSize of 0 disables caching entirely: Get always misses and Put
// is a no-op, matching the "cache-off" configuration spec.md allows.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List

	// MaxExpressionLength overrides DefaultMaxExpressionLength for every
	// expression parsed through this cache (spec.md §4.2,
	// DslPolicy.maxExpressionLength). Zero means "use the default".
	MaxExpressionLength int
}

type cacheEntry struct {
	key  string
	tree *types.FilterTree
}

// DefaultCacheSize is the LRU capacity used when a Cache is constructed
// without an explicit size.
const DefaultCacheSize = 1000

// NewCache builds an LRU cache with the given capacity. A non-positive
// size disables caching.
func NewCache(maxSize int) *Cache {
	return &Cache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached FilterTree for expr, if present, promoting it
// to most-recently-used.
func (c *Cache) Get(expr string) (*types.FilterTree, bool) {
	if c.maxSize <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[expr]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).tree, true
}

// Put stores tree under expr, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *Cache) Put(expr string, tree *types.FilterTree) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[expr]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).tree = tree
		return
	}
	el := c.order.PushFront(&cacheEntry{key: expr, tree: tree})
	c.items[expr] = el
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Stats reports the cache's current occupancy, for diagnostics.
type Stats struct {
	Enabled bool
	Size    int
	MaxSize int
}

// Stats returns the current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Enabled: c.maxSize > 0,
		Size:    c.order.Len(),
		MaxSize: c.maxSize,
	}
}

// Clear empties the cache without changing its capacity.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// ParseCached parses expr through cache c, keyed on its canonical
// tokenized form rather than the raw source string (spec.md §4.2: the
// cache is whitespace-insensitive), so "a & b" and "a&b" share one entry.
// Tokenizing is cheap relative to the full shunting-yard parse, so a
// cache hit still skips the expensive half of the work.
func ParseCached(c *Cache, expr string) (*types.FilterTree, error) {
	maxLen := c.MaxExpressionLength
	if maxLen <= 0 {
		maxLen = DefaultMaxExpressionLength
	}
	tokens, err := TokenizeWithLimit(expr, maxLen)
	if err != nil {
		return nil, err
	}
	key := String(tokens)

	if tree, ok := c.Get(key); ok {
		return tree, nil
	}
	tree, err := parseTokens(tokens)
	if err != nil {
		return nil, err
	}
	c.Put(key, tree)
	return tree, nil
}
