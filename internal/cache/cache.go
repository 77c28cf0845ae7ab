// Package cache memoizes computed values for a bounded time. Concurrent
// misses on one key share a single computation.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// ComputeFunc produces the value to cache on a miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

type Cache interface {
	// GetOrCompute returns the live value stored under key, or runs fn,
	// stores its result for ttl and returns it. Errors from fn are returned
	// and nothing is stored.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// GetOrComputeJSON is GetOrCompute for values stored as JSON.
func GetOrComputeJSON[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	raw, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
