package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a stored value with its expiry.
type entry struct {
	value  []byte
	expiry time.Time
}

// MemoryCache is an in-process Cache guarded by a mutex. Used by tests and
// by the STORE=memory development mode. Batches apply under one lock
// acquisition, matching the all-or-nothing commit of the Redis pipeline.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]entry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]entry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiry) {
		return nil, nil
	}
	return e.value, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.m[key] = entry{value: value, expiry: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.m, key)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Batch() Batch {
	return &memoryBatch{cache: c}
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Has reports whether key currently holds a live entry.
func (c *MemoryCache) Has(key string) bool {
	v, _ := c.Get(context.Background(), key)
	return v != nil
}

type memoryOp struct {
	key    string
	value  []byte
	ttl    time.Duration
	delete bool
}

type memoryBatch struct {
	cache *MemoryCache
	ops   []memoryOp
}

func (b *memoryBatch) Set(key string, value []byte, ttl time.Duration) {
	b.ops = append(b.ops, memoryOp{key: key, value: value, ttl: ttl})
}

func (b *memoryBatch) Delete(keys ...string) {
	for _, key := range keys {
		b.ops = append(b.ops, memoryOp{key: key, delete: true})
	}
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	b.cache.mu.Lock()
	defer b.cache.mu.Unlock()
	now := time.Now()
	for _, op := range b.ops {
		if op.delete {
			delete(b.cache.m, op.key)
			continue
		}
		b.cache.m[op.key] = entry{value: op.value, expiry: now.Add(op.ttl)}
	}
	return nil
}
