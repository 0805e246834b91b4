package repository

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// OpenFunc establishes a store handle.
type OpenFunc[T any] func(ctx context.Context) (T, error)

// Connector opens a handle on first use and caches it.
//
// Concurrent first callers share a single open attempt, run without the
// caller's cancellation. A failed attempt is not cached, so the next call
// tries again.
type Connector[T any] struct {
	open  OpenFunc[T]
	group singleflight.Group

	mu     sync.RWMutex
	handle T
	ready  bool
}

// NewConnector returns a Connector that calls open lazily.
func NewConnector[T any](open OpenFunc[T]) *Connector[T] {
	return &Connector[T]{open: open}
}

// Get returns the cached handle, opening it if needed.
func (c *Connector[T]) Get(ctx context.Context) (T, error) {
	c.mu.RLock()
	if c.ready {
		h := c.handle
		c.mu.RUnlock()
		return h, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("open", func() (any, error) {
		c.mu.RLock()
		if c.ready {
			h := c.handle
			c.mu.RUnlock()
			return h, nil
		}
		c.mu.RUnlock()

		// Waiters share this open, so one caller going away must not fail it.
		h, err := c.open(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.handle = h
		c.ready = true
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Ready reports whether a handle has been opened.
func (c *Connector[T]) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Close releases the handle through closeFn if one was opened.
func (c *Connector[T]) Close(closeFn func(T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil
	}
	var zero T
	h := c.handle
	c.handle = zero
	c.ready = false
	return closeFn(h)
}
