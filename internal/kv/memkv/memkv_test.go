package memkv

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sapic/core/internal/kv"
)

func TestPutGetRemoveRoundTrip(t *testing.T) {
	t.Parallel()
	b := New()
	ctx := context.Background()
	scope := kv.ProjectScope("p1")

	if err := b.Put(ctx, scope, "k", json.RawMessage(`"v1"`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := b.Get(ctx, scope, "k")
	if err != nil || !ok || string(got) != `"v1"` {
		t.Fatalf("Get() = (%s, %v, %v)", got, ok, err)
	}

	_, ok, _ = b.Remove(ctx, scope, "k")
	if !ok {
		t.Fatal("Remove() ok = false, want true")
	}
	_, ok, _ = b.Get(ctx, scope, "k")
	if ok {
		t.Fatal("Get() after remove ok = true, want false")
	}
}

func TestGetBatchPreservesOrderAndMissing(t *testing.T) {
	t.Parallel()
	b := New()
	ctx := context.Background()
	scope := kv.WorkspaceScope("w1")

	_ = b.Put(ctx, scope, "a", json.RawMessage(`1`))
	_ = b.Put(ctx, scope, "c", json.RawMessage(`3`))

	got, err := b.GetBatch(ctx, scope, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if len(got) != 3 || got[1].Value != nil {
		t.Fatalf("GetBatch() = %+v, want middle slot nil", got)
	}
}

func TestPrefixDeleteEmptiesScope(t *testing.T) {
	t.Parallel()
	b := New()
	ctx := context.Background()
	scope := kv.ProjectScope("p1")

	_ = b.PutBatch(ctx, scope, []kv.Pair{
		{Key: "resource.entry.1.order", Value: json.RawMessage(`1`)},
		{Key: "expandedItems", Value: json.RawMessage(`[]`)},
	})

	if err := b.RemoveBatchByPrefix(ctx, scope, ""); err != nil {
		t.Fatalf("RemoveBatchByPrefix() error = %v", err)
	}
	remaining, _ := b.GetBatchByPrefix(ctx, scope, "")
	if len(remaining) != 0 {
		t.Fatalf("scope not emptied: %+v", remaining)
	}
}

func TestCrossScopeIsolation(t *testing.T) {
	t.Parallel()
	b := New()
	ctx := context.Background()

	_ = b.Put(ctx, kv.ProjectScope("a"), "k", json.RawMessage(`1`))
	_ = b.Put(ctx, kv.ProjectScope("b"), "k", json.RawMessage(`2`))

	va, _, _ := b.Get(ctx, kv.ProjectScope("a"), "k")
	vb, _, _ := b.Get(ctx, kv.ProjectScope("b"), "k")
	if string(va) != "1" || string(vb) != "2" {
		t.Fatalf("cross-scope leak: a=%s b=%s", va, vb)
	}
}

func TestCanceledContextRejectsPut(t *testing.T) {
	t.Parallel()
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Put(ctx, kv.AppScope, "k", json.RawMessage(`1`)); err == nil {
		t.Fatal("Put() with canceled context returned nil error")
	}
}

func TestCloseRejectsSubsequentOps(t *testing.T) {
	t.Parallel()
	b := New()
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Put(context.Background(), kv.AppScope, "k", json.RawMessage(`1`)); err == nil {
		t.Fatal("Put() after Close() returned nil error")
	}
}

// TestConcurrentReadsAgainstFreshScope exercises the first-touch path of a
// scope never written to: Get, GetBatch, and GetBatchByPrefix previously
// got-or-created the scope's map under only an RLock, racing concurrent
// callers' map writes. Run with -race to catch a regression.
func TestConcurrentReadsAgainstFreshScope(t *testing.T) {
	t.Parallel()
	b := New()
	ctx := context.Background()
	scope := kv.ProjectScope("fresh")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _, _ = b.Get(ctx, scope, "k")
		}()
		go func() {
			defer wg.Done()
			_, _ = b.GetBatch(ctx, scope, []string{"k"})
		}()
		go func() {
			defer wg.Done()
			_, _ = b.GetBatchByPrefix(ctx, scope, "k")
		}()
	}
	wg.Wait()
}
