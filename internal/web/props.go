package web

import (
	"context"
	"sync"
	"time"
)

// propsCache keeps the data a page was generated from and regenerates it once
// it is older than ttl. A failed regeneration keeps serving the old data.
type propsCache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]propsEntry[T]
}

type propsEntry[T any] struct {
	value       T
	generatedAt time.Time
}

func newPropsCache[T any](ttl time.Duration, now func() time.Time) *propsCache[T] {
	return &propsCache[T]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]propsEntry[T]),
	}
}

// get returns the cached value for key, loading it when missing or stale.
// stale is true when a regeneration failed and the old value was returned
// together with the load error.
func (c *propsCache[T]) get(ctx context.Context, key string, load func(context.Context) (T, error)) (value T, stale bool, err error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && c.now().Sub(entry.generatedAt) < c.ttl {
		return entry.value, false, nil
	}

	fresh, err := load(ctx)
	if err != nil {
		if ok {
			return entry.value, true, err
		}
		var zero T
		return zero, false, err
	}

	c.mu.Lock()
	c.entries[key] = propsEntry[T]{value: fresh, generatedAt: c.now()}
	c.mu.Unlock()
	return fresh, false, nil
}
