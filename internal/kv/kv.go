// Package kv implements a durable, scope-partitioned key/value store with
// atomic batch writes, prefix scans, and WAL-aware lifecycle
// (checkpoint/flush/optimize/close).
package kv

import (
	"context"
	"encoding/json"
)

// ScopeKind identifies which partition a key lives in.
type ScopeKind int

const (
	Application ScopeKind = iota
	Workspace
	Project
)

// Scope is a storage partition: Application, Workspace(id), or Project(id).
type Scope struct {
	Kind ScopeKind
	ID   string // empty for Application
}

// AppScope is the singleton Application-scope value.
var AppScope = Scope{Kind: Application}

// WorkspaceScope returns the scope for a given workspace id.
func WorkspaceScope(id string) Scope { return Scope{Kind: Workspace, ID: id} }

// ProjectScope returns the scope for a given project id.
func ProjectScope(id string) Scope { return Scope{Kind: Project, ID: id} }

// namespace returns a string prefix unique per scope, used by backends that
// store all scopes in one physical table/map.
func (s Scope) namespace() string {
	switch s.Kind {
	case Workspace:
		return "workspace:" + s.ID + ":"
	case Project:
		return "project:" + s.ID + ":"
	default:
		return "application:"
	}
}

// Pair is an order-preserving key/value result slot. Value is nil when the
// key was absent (e.g. in GetBatch results).
type Pair struct {
	Key   string
	Value json.RawMessage
}

// Backend is the storage engine interface every keyed-storage operation
// maps onto. Both the SQLite-backed implementation (kv/sqlitekv) and the
// in-memory implementation (kv/memkv) satisfy it, so tests can swap
// backends without touching caller code.
type Backend interface {
	Put(ctx context.Context, scope Scope, key string, v json.RawMessage) error
	Get(ctx context.Context, scope Scope, key string) (json.RawMessage, bool, error)
	Remove(ctx context.Context, scope Scope, key string) (json.RawMessage, bool, error)

	PutBatch(ctx context.Context, scope Scope, items []Pair) error
	GetBatch(ctx context.Context, scope Scope, keys []string) ([]Pair, error)
	RemoveBatch(ctx context.Context, scope Scope, keys []string) ([]Pair, error)

	GetBatchByPrefix(ctx context.Context, scope Scope, prefix string) ([]Pair, error)
	RemoveBatchByPrefix(ctx context.Context, scope Scope, prefix string) error

	Checkpoint(ctx context.Context) error
	Flush(ctx context.Context) error
	Optimize(ctx context.Context) error
	Close() error
}
