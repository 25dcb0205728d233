package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sapic/core/internal/kv/memkv"
)

func TestCreateThenListRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	storage := memkv.New()
	ctx := context.Background()

	if _, err := Create(ctx, dir, "ws-1", "Personal"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	workspaces, warnings, err := List(ctx, dir, storage)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(workspaces) != 1 || workspaces[0].ID != "ws-1" || workspaces[0].Name != "Personal" {
		t.Fatalf("workspaces = %+v", workspaces)
	}
	if workspaces[0].LastOpenedAt != nil {
		t.Fatalf("expected nil LastOpenedAt before first open")
	}
}

func TestOpenStampsLastOpenedAt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	storage := memkv.New()
	ctx := context.Background()

	if _, err := Create(ctx, dir, "ws-1", "Personal"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ws, err := Open(ctx, dir, storage, "ws-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ws.LastOpenedAt == nil {
		t.Fatalf("expected LastOpenedAt to be set after Open")
	}

	workspaces, _, err := List(ctx, dir, storage)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if workspaces[0].LastOpenedAt == nil {
		t.Fatalf("expected List to surface the stamped lastOpenedAt")
	}
}

func TestOpenUnknownWorkspaceIsNotFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	storage := memkv.New()

	_, err := Open(context.Background(), dir, storage, "does-not-exist")
	if err == nil {
		t.Fatalf("expected error opening unknown workspace")
	}
}

func TestListSkipsUnreadableManifestWithWarning(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	storage := memkv.New()

	junk := filepath.Join(dir, "not-a-workspace")
	if err := os.MkdirAll(junk, 0o755); err != nil {
		t.Fatal(err)
	}

	workspaces, warnings, err := List(context.Background(), dir, storage)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(workspaces) != 0 {
		t.Fatalf("expected no workspaces, got %+v", workspaces)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", warnings)
	}
}

func TestListOnMissingWorkspacesDirReturnsEmpty(t *testing.T) {
	t.Parallel()
	storage := memkv.New()

	workspaces, warnings, err := List(context.Background(), filepath.Join(t.TempDir(), "nope"), storage)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(workspaces) != 0 || len(warnings) != 0 {
		t.Fatalf("expected empty results, got workspaces=%+v warnings=%+v", workspaces, warnings)
	}
}
