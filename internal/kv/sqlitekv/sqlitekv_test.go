package sqlitekv

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sapic/core/internal/kv"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	dir := t.TempDir()
	b, err := Open(filepath.Join(dir, "state.sqlite3"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestPutGetRemoveRoundTrip(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()
	scope := kv.ProjectScope("p1")

	if err := b.Put(ctx, scope, "k", json.RawMessage(`"v1"`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := b.Get(ctx, scope, "k")
	if err != nil || !ok || string(got) != `"v1"` {
		t.Fatalf("Get() = (%s, %v, %v), want (\"v1\", true, nil)", got, ok, err)
	}

	// put(k,v); put(k,v); get(k) == v
	if err := b.Put(ctx, scope, "k", json.RawMessage(`"v1"`)); err != nil {
		t.Fatalf("second Put() error = %v", err)
	}
	got, _, _ = b.Get(ctx, scope, "k")
	if string(got) != `"v1"` {
		t.Fatalf("Get() after repeat put = %s, want \"v1\"", got)
	}

	prior, ok, err := b.Remove(ctx, scope, "k")
	if err != nil || !ok || string(prior) != `"v1"` {
		t.Fatalf("Remove() = (%s, %v, %v)", prior, ok, err)
	}
	_, ok, err = b.Get(ctx, scope, "k")
	if err != nil || ok {
		t.Fatalf("Get() after remove = (_, %v, %v), want ok=false", ok, err)
	}

	// put(k,v); remove(k); put(k,v); get(k) == v
	if err := b.Put(ctx, scope, "k", json.RawMessage(`"v2"`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, _ = b.Get(ctx, scope, "k")
	if !ok || string(got) != `"v2"` {
		t.Fatalf("Get() after re-put = (%s, %v), want (\"v2\", true)", got, ok)
	}
}

func TestScopePartitioning(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()

	if err := b.Put(ctx, kv.ProjectScope("a"), "k", json.RawMessage(`1`)); err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, kv.ProjectScope("b"), "k", json.RawMessage(`2`)); err != nil {
		t.Fatal(err)
	}

	va, _, _ := b.Get(ctx, kv.ProjectScope("a"), "k")
	vb, _, _ := b.Get(ctx, kv.ProjectScope("b"), "k")
	if string(va) != "1" || string(vb) != "2" {
		t.Fatalf("cross-scope leak: a=%s b=%s", va, vb)
	}
}

func TestBatchAtomicVisibility(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()
	scope := kv.WorkspaceScope("w1")

	items := []kv.Pair{
		{Key: "a", Value: json.RawMessage(`1`)},
		{Key: "b", Value: json.RawMessage(`2`)},
		{Key: "c", Value: json.RawMessage(`3`)},
	}
	if err := b.PutBatch(ctx, scope, items); err != nil {
		t.Fatalf("PutBatch() error = %v", err)
	}

	got, err := b.GetBatch(ctx, scope, []string{"a", "b", "c", "missing"})
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("GetBatch() len = %d, want 4", len(got))
	}
	if string(got[0].Value) != "1" || string(got[1].Value) != "2" || string(got[2].Value) != "3" {
		t.Fatalf("GetBatch() values = %+v", got)
	}
	if got[3].Value != nil {
		t.Fatalf("GetBatch() missing key value = %s, want nil", got[3].Value)
	}
}

func TestRemoveBatchOrderPreserving(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()
	scope := kv.WorkspaceScope("w1")

	_ = b.PutBatch(ctx, scope, []kv.Pair{
		{Key: "x", Value: json.RawMessage(`"X"`)},
		{Key: "y", Value: json.RawMessage(`"Y"`)},
	})

	prior, err := b.RemoveBatch(ctx, scope, []string{"y", "x", "z"})
	if err != nil {
		t.Fatalf("RemoveBatch() error = %v", err)
	}
	if len(prior) != 3 || prior[0].Key != "y" || prior[1].Key != "x" || prior[2].Key != "z" {
		t.Fatalf("RemoveBatch() order = %+v", prior)
	}
	if string(prior[0].Value) != `"Y"` || string(prior[1].Value) != `"X"` {
		t.Fatalf("RemoveBatch() values = %+v", prior)
	}

	remaining, _ := b.GetBatchByPrefix(ctx, scope, "")
	if len(remaining) != 0 {
		t.Fatalf("scope not empty after RemoveBatch: %+v", remaining)
	}
}

func TestPrefixScanEmptyPrefixMatchesAll(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()
	scope := kv.ProjectScope("p1")

	_ = b.Put(ctx, scope, "resource.entry.1.order", json.RawMessage(`1`))
	_ = b.Put(ctx, scope, "resource.entry.2.order", json.RawMessage(`2`))
	_ = b.Put(ctx, scope, "expandedItems", json.RawMessage(`[]`))

	all, err := b.GetBatchByPrefix(ctx, scope, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("GetBatchByPrefix(\"\") = (%d items, %v), want 3 items", len(all), err)
	}

	if err := b.RemoveBatchByPrefix(ctx, scope, ""); err != nil {
		t.Fatalf("RemoveBatchByPrefix(\"\") error = %v", err)
	}
	remaining, _ := b.GetBatchByPrefix(ctx, scope, "")
	if len(remaining) != 0 {
		t.Fatalf("scope not emptied: %+v", remaining)
	}
}

func TestPrefixScanUnderscoreIsLiteral(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()
	scope := kv.ProjectScope("p1")

	_ = b.Put(ctx, scope, "a_b", json.RawMessage(`1`))
	_ = b.Put(ctx, scope, "axb", json.RawMessage(`2`))

	// "a_" should only match "a_b", not "axb", because LIKE's "_" wildcard
	// must be escaped for a literal prefix scan.
	got, err := b.GetBatchByPrefix(ctx, scope, "a_")
	if err != nil {
		t.Fatalf("GetBatchByPrefix() error = %v", err)
	}
	if len(got) != 1 || got[0].Key != "a_b" {
		t.Fatalf("GetBatchByPrefix(\"a_\") = %+v, want exactly [a_b]", got)
	}
}

func TestCheckpointFlushOptimizeClose(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	ctx := context.Background()

	if err := b.Checkpoint(ctx); err != nil {
		t.Errorf("Checkpoint() error = %v", err)
	}
	if err := b.Flush(ctx); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := b.Optimize(ctx); err != nil {
		t.Errorf("Optimize() error = %v", err)
	}
}

func TestCanceledContextBeforeCommitLeavesNoPartialState(t *testing.T) {
	t.Parallel()
	b := openTestBackend(t)
	scope := kv.ProjectScope("p1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.PutBatch(ctx, scope, []kv.Pair{{Key: "a", Value: json.RawMessage(`1`)}})
	if err == nil {
		t.Fatal("PutBatch() with canceled context returned nil error")
	}

	got, err := b.GetBatchByPrefix(context.Background(), scope, "")
	if err != nil {
		t.Fatalf("GetBatchByPrefix() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("canceled PutBatch left partial state: %+v", got)
	}
}
