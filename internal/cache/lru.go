package cache

import (
	"container/list"
	"sync"
	"time"
)

// Reasons an entry leaves the cache other than an explicit Purge.
const (
	EvictCapacity = "capacity"
	EvictExpired  = "expired"
	EvictPruned   = "pruned"
)

// LRUOption configures an LRUCache.
type LRUOption func(*lruOptions)

type lruOptions struct {
	now     func() time.Time
	onEvict func(reason string)
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) LRUOption {
	return func(o *lruOptions) { o.now = now }
}

// WithEvictHandler is called, under the cache lock, for every evicted entry.
func WithEvictHandler(fn func(reason string)) LRUOption {
	return func(o *lruOptions) { o.onEvict = fn }
}

// LRUCache bounds entries by count and age. The least recently read entry
// goes first when the cache is full.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	onEvict func(reason string)
	items   map[string]*list.Element
	order   *list.List
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries for ttl each.
// A maxSize below one is treated as one.
func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...LRUOption) *LRUCache[T] {
	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &LRUCache[T]{
		maxSize: max(maxSize, 1),
		ttl:     ttl,
		now:     o.now,
		onEvict: o.onEvict,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expiresAt) {
		c.evict(elem, EvictExpired)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return e.value, true
}

// Set stores value under key, replacing and refreshing any existing entry.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.evict(c.order.Back(), EvictCapacity)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// CleanExpired removes all expired entries and returns how many it removed.
func (c *LRUCache[T]) CleanExpired() int {
	now := c.now()
	return c.evictWhere(func(e *entry[T]) bool { return now.After(e.expiresAt) }, EvictExpired)
}

// Prune removes every entry whose key fails keep and returns how many it removed.
func (c *LRUCache[T]) Prune(keep func(key string) bool) int {
	return c.evictWhere(func(e *entry[T]) bool { return !keep(e.key) }, EvictPruned)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Purge drops every entry without reporting evictions.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *LRUCache[T]) evictWhere(match func(*entry[T]) bool, reason string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if match(elem.Value.(*entry[T])) {
			c.evict(elem, reason)
			n++
		}
		elem = next
	}
	return n
}

func (c *LRUCache[T]) evict(elem *list.Element, reason string) {
	c.remove(elem)
	if c.onEvict != nil {
		c.onEvict(reason)
	}
}

func (c *LRUCache[T]) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
