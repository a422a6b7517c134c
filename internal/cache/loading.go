package cache

import (
	"golang.org/x/sync/singleflight"
)

// LoadingCache fills misses through a load function. Concurrent misses on
// the same key share one call.
type LoadingCache[T any] struct {
	store   *LRUCache[T]
	group   singleflight.Group
	onCheck func(hit bool)
}

// NewLoadingCache wraps store. onCheck, when non-nil, is called on every lookup.
func NewLoadingCache[T any](store *LRUCache[T], onCheck func(hit bool)) *LoadingCache[T] {
	return &LoadingCache[T]{store: store, onCheck: onCheck}
}

// GetOrLoad returns the cached value for key or computes, stores and returns it.
// Failed loads are not cached.
func (c *LoadingCache[T]) GetOrLoad(key string, load func() (T, error)) (T, error) {
	if v, ok := c.store.Get(key); ok {
		c.observe(true)
		return v, nil
	}
	c.observe(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.store.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Store exposes the underlying LRU, e.g. for registration with a Manager.
func (c *LoadingCache[T]) Store() *LRUCache[T] {
	return c.store
}

func (c *LoadingCache[T]) observe(hit bool) {
	if c.onCheck != nil {
		c.onCheck(hit)
	}
}
