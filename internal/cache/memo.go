package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Memo caches the results of an expensive computation per key. Concurrent
// callers asking for the same missing key share a single computation.
// Errors are never cached.
type Memo[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewMemo[T any](c Cache[T]) *Memo[T] {
	return &Memo[T]{cache: c}
}

// Do returns the cached value for key or computes, stores and returns it.
//
// The shared computation gets a context that keeps ctx's values but not its
// cancellation, so one caller giving up does not fail the others waiting on
// the same key. A cancelled caller stops waiting and gets ctx.Err().
func (m *Memo[T]) Do(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := m.cache.Get(key); ok {
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		v, err := compute(detached)
		if err != nil {
			return v, err
		}
		m.cache.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Reset drops every memoized value.
func (m *Memo[T]) Reset() {
	m.cache.Purge()
}
