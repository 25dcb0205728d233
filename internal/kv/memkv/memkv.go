// Package memkv implements kv.Backend entirely in-memory, for unit tests
// that need a backend without a real database: plain Go maps guarded by a
// single mutex, usable interchangeably with the real backend behind the
// same interface.
package memkv

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/sapicerr"
)

// Backend is an in-memory kv.Backend. All batch operations are
// all-or-nothing and immediately visible, matching atomicity
// requirements trivially since everything happens under one lock.
type Backend struct {
	mu     sync.RWMutex
	scopes map[string]map[string]json.RawMessage
	closed bool
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{scopes: make(map[string]map[string]json.RawMessage)}
}

func scopeKey(s kv.Scope) string {
	switch s.Kind {
	case kv.Workspace:
		return "workspace:" + s.ID
	case kv.Project:
		return "project:" + s.ID
	default:
		return "application"
	}
}

// bucketRO looks up scope's map without creating it, safe under a shared
// RLock: callers that only read must never touch b.scopes directly, since
// an absent scope would otherwise tempt them into the same unguarded
// write bucketRW performs.
func (b *Backend) bucketRO(s kv.Scope) map[string]json.RawMessage {
	return b.scopes[scopeKey(s)]
}

// bucketRW gets or creates scope's map. Callers must hold b.mu.Lock, not
// just RLock: first touch of a scope mutates b.scopes itself.
func (b *Backend) bucketRW(s kv.Scope) map[string]json.RawMessage {
	key := scopeKey(s)
	m, ok := b.scopes[key]
	if !ok {
		m = make(map[string]json.RawMessage)
		b.scopes[key] = m
	}
	return m
}

func (b *Backend) checkClosed(op string) error {
	if b.closed {
		return sapicerr.New(sapicerr.Backend, op, "backend is closed")
	}
	return nil
}

func ctxErr(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	return nil
}

func (b *Backend) Put(ctx context.Context, scope kv.Scope, key string, v json.RawMessage) error {
	if err := ctxErr(ctx, "memkv.Put"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkClosed("memkv.Put"); err != nil {
		return err
	}
	cp := append(json.RawMessage(nil), v...)
	b.bucketRW(scope)[key] = cp
	return nil
}

func (b *Backend) Get(ctx context.Context, scope kv.Scope, key string) (json.RawMessage, bool, error) {
	if err := ctxErr(ctx, "memkv.Get"); err != nil {
		return nil, false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkClosed("memkv.Get"); err != nil {
		return nil, false, err
	}
	v, ok := b.bucketRO(scope)[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

func (b *Backend) Remove(ctx context.Context, scope kv.Scope, key string) (json.RawMessage, bool, error) {
	if err := ctxErr(ctx, "memkv.Remove"); err != nil {
		return nil, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkClosed("memkv.Remove"); err != nil {
		return nil, false, err
	}
	bucket := b.bucketRW(scope)
	v, ok := bucket[key]
	if ok {
		delete(bucket, key)
	}
	return v, ok, nil
}

func (b *Backend) PutBatch(ctx context.Context, scope kv.Scope, items []kv.Pair) error {
	if err := ctxErr(ctx, "memkv.PutBatch"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkClosed("memkv.PutBatch"); err != nil {
		return err
	}
	// Re-check cancellation right before the commit point so a context
	// canceled mid-call never leaves partial state visible.
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, "memkv.PutBatch", err)
	}
	bucket := b.bucketRW(scope)
	for _, it := range items {
		bucket[it.Key] = append(json.RawMessage(nil), it.Value...)
	}
	return nil
}

func (b *Backend) GetBatch(ctx context.Context, scope kv.Scope, keys []string) ([]kv.Pair, error) {
	if err := ctxErr(ctx, "memkv.GetBatch"); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkClosed("memkv.GetBatch"); err != nil {
		return nil, err
	}
	bucket := b.bucketRO(scope)
	out := make([]kv.Pair, len(keys))
	for i, k := range keys {
		if v, ok := bucket[k]; ok {
			out[i] = kv.Pair{Key: k, Value: append(json.RawMessage(nil), v...)}
		} else {
			out[i] = kv.Pair{Key: k, Value: nil}
		}
	}
	return out, nil
}

func (b *Backend) RemoveBatch(ctx context.Context, scope kv.Scope, keys []string) ([]kv.Pair, error) {
	if err := ctxErr(ctx, "memkv.RemoveBatch"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkClosed("memkv.RemoveBatch"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Canceled, "memkv.RemoveBatch", err)
	}
	bucket := b.bucketRW(scope)
	out := make([]kv.Pair, len(keys))
	for i, k := range keys {
		out[i] = kv.Pair{Key: k, Value: bucket[k]}
		delete(bucket, k)
	}
	return out, nil
}

func (b *Backend) GetBatchByPrefix(ctx context.Context, scope kv.Scope, prefix string) ([]kv.Pair, error) {
	if err := ctxErr(ctx, "memkv.GetBatchByPrefix"); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkClosed("memkv.GetBatchByPrefix"); err != nil {
		return nil, err
	}
	bucket := b.bucketRO(scope)
	var out []kv.Pair
	for k, v := range bucket {
		if strings.HasPrefix(k, prefix) {
			out = append(out, kv.Pair{Key: k, Value: append(json.RawMessage(nil), v...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (b *Backend) RemoveBatchByPrefix(ctx context.Context, scope kv.Scope, prefix string) error {
	if err := ctxErr(ctx, "memkv.RemoveBatchByPrefix"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkClosed("memkv.RemoveBatchByPrefix"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, "memkv.RemoveBatchByPrefix", err)
	}
	bucket := b.bucketRW(scope)
	for k := range bucket {
		if strings.HasPrefix(k, prefix) {
			delete(bucket, k)
		}
	}
	return nil
}

// Checkpoint, Flush, and Optimize are no-ops: there is no WAL or on-disk
// file to sync, truncate, or vacuum for a pure in-memory map.
func (b *Backend) Checkpoint(ctx context.Context) error { return ctxErr(ctx, "memkv.Checkpoint") }
func (b *Backend) Flush(ctx context.Context) error      { return ctxErr(ctx, "memkv.Flush") }
func (b *Backend) Optimize(ctx context.Context) error   { return ctxErr(ctx, "memkv.Optimize") }

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
