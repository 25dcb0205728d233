// Package storecache wraps a kv.Backend with a process-local, write-through
// cache: mutating ops update the cache only after commit, reads populate
// the cache on miss, and prefix scans repopulate the cache with every row
// observed.
//
// The locking shape is a generic TTL-cache pattern applied without the
// TTL: sync.RWMutex guarding a map, with DeleteByPrefix iterating and
// matching strings.HasPrefix, generalized from a flat string-keyed cache
// into one scope-partitioned cache fronting a kv.Backend.
package storecache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/sapic/core/internal/kv"
)

type entryKey struct {
	scope string
	key   string
}

// Cache fronts a kv.Backend. The backing store remains the authority; the
// cache is never shared across processes.
type Cache struct {
	backend kv.Backend

	mu      sync.RWMutex
	entries map[entryKey]json.RawMessage
}

// New wraps backend with a write-through cache.
func New(backend kv.Backend) *Cache {
	return &Cache{backend: backend, entries: make(map[entryKey]json.RawMessage)}
}

func scopeTag(s kv.Scope) string {
	switch s.Kind {
	case kv.Workspace:
		return "workspace:" + s.ID
	case kv.Project:
		return "project:" + s.ID
	default:
		return "application"
	}
}

func (c *Cache) get(scope kv.Scope, key string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[entryKey{scopeTag(scope), key}]
	return v, ok
}

func (c *Cache) set(scope kv.Scope, key string, v json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entryKey{scopeTag(scope), key}] = v
}

func (c *Cache) delete(scope kv.Scope, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, entryKey{scopeTag(scope), key})
}

// deleteByPrefix removes every cached entry in scope whose key starts with
// prefix.
func (c *Cache) deleteByPrefix(scope kv.Scope, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := scopeTag(scope)
	for ek := range c.entries {
		if ek.scope == tag && strings.HasPrefix(ek.key, prefix) {
			delete(c.entries, ek)
		}
	}
}

func (c *Cache) Put(ctx context.Context, scope kv.Scope, key string, v json.RawMessage) error {
	if err := c.backend.Put(ctx, scope, key, v); err != nil {
		return err
	}
	c.set(scope, key, v)
	return nil
}

func (c *Cache) Get(ctx context.Context, scope kv.Scope, key string) (json.RawMessage, bool, error) {
	if v, ok := c.get(scope, key); ok {
		return v, true, nil
	}
	v, ok, err := c.backend.Get(ctx, scope, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		c.set(scope, key, v)
	}
	return v, ok, nil
}

func (c *Cache) Remove(ctx context.Context, scope kv.Scope, key string) (json.RawMessage, bool, error) {
	prior, ok, err := c.backend.Remove(ctx, scope, key)
	if err != nil {
		return nil, false, err
	}
	c.delete(scope, key)
	return prior, ok, nil
}

func (c *Cache) PutBatch(ctx context.Context, scope kv.Scope, items []kv.Pair) error {
	if err := c.backend.PutBatch(ctx, scope, items); err != nil {
		return err
	}
	for _, it := range items {
		c.set(scope, it.Key, it.Value)
	}
	return nil
}

func (c *Cache) GetBatch(ctx context.Context, scope kv.Scope, keys []string) ([]kv.Pair, error) {
	out := make([]kv.Pair, len(keys))
	var missing []string
	missingIdx := make(map[string]int)
	for i, k := range keys {
		if v, ok := c.get(scope, k); ok {
			out[i] = kv.Pair{Key: k, Value: v}
		} else {
			missing = append(missing, k)
			missingIdx[k] = i
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := c.backend.GetBatch(ctx, scope, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range fetched {
		out[missingIdx[p.Key]] = p
		if p.Value != nil {
			c.set(scope, p.Key, p.Value)
		}
	}
	return out, nil
}

func (c *Cache) RemoveBatch(ctx context.Context, scope kv.Scope, keys []string) ([]kv.Pair, error) {
	prior, err := c.backend.RemoveBatch(ctx, scope, keys)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		c.delete(scope, k)
	}
	return prior, nil
}

func (c *Cache) GetBatchByPrefix(ctx context.Context, scope kv.Scope, prefix string) ([]kv.Pair, error) {
	rows, err := c.backend.GetBatchByPrefix(ctx, scope, prefix)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		c.set(scope, p.Key, p.Value)
	}
	return rows, nil
}

func (c *Cache) RemoveBatchByPrefix(ctx context.Context, scope kv.Scope, prefix string) error {
	if err := c.backend.RemoveBatchByPrefix(ctx, scope, prefix); err != nil {
		return err
	}
	c.deleteByPrefix(scope, prefix)
	return nil
}

func (c *Cache) Checkpoint(ctx context.Context) error { return c.backend.Checkpoint(ctx) }
func (c *Cache) Flush(ctx context.Context) error      { return c.backend.Flush(ctx) }
func (c *Cache) Optimize(ctx context.Context) error   { return c.backend.Optimize(ctx) }

func (c *Cache) Close() error {
	c.mu.Lock()
	c.entries = make(map[entryKey]json.RawMessage)
	c.mu.Unlock()
	return c.backend.Close()
}

var _ kv.Backend = (*Cache)(nil)
