// Package cache provides the key/value tree cache: key derivation, a
// backend-agnostic interface with batched invalidation, and Redis and
// in-memory implementations.
//
// Failure policy follows the read/write asymmetry of a read-through cache:
// Get fails softly (a backend error is reported as a miss, because a miss
// safely falls back to the durable store), while Batch.Commit fails hard
// with CacheUnavailableError (an un-invalidated entry would serve stale
// data for its whole TTL window).
package cache

import (
	"context"
	"time"
)

// Cache is a key/value cache with per-key expiration.
type Cache interface {
	// Get returns the value for key, or (nil, nil) on a miss. Backend
	// errors are downgraded to misses.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Deleting an absent key is a no-op.
	Delete(ctx context.Context, keys ...string) error

	// Batch returns an accumulator of pending operations that commits as
	// one atomic round trip.
	Batch() Batch
}

// Batch accumulates cache operations for a single pipelined commit.
// Accumulating is free of I/O; Commit is the only suspension point.
type Batch interface {
	Set(key string, value []byte, ttl time.Duration)
	Delete(keys ...string)

	// Len reports the number of pending operations.
	Len() int

	// Commit executes all accumulated operations in one round trip.
	// Fails with CacheUnavailableError if the backend cannot be reached;
	// mutating callers must surface that error, never swallow it.
	Commit(ctx context.Context) error
}
