package project

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sapic/core/internal/kv/memkv"
	"github.com/sapic/core/internal/sapicerr"
)

func TestCreateWritesSkeletonAndManifest(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	proj, warnings, err := Create(context.Background(), dir, CreateParams{Name: "My API"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if proj.VCS != nil {
		t.Fatalf("expected no VCS binding, got %+v", proj.VCS)
	}

	for _, sub := range []string{"assets", "environments", "resources"} {
		full := filepath.Join(proj.InternalPath, sub, ".gitkeep")
		if _, err := os.Stat(full); err != nil {
			t.Fatalf("missing skeleton marker %s: %v", full, err)
		}
	}
	raw, err := os.ReadFile(filepath.Join(proj.InternalPath, "Sapic.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if m.Name != "My API" {
		t.Fatalf("manifest name = %q, want %q", m.Name, "My API")
	}
}

func TestCreateWithRepositoryURLKeepsVCSBinding(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	proj, warnings, err := Create(context.Background(), dir, CreateParams{
		Name: "Bad Repo Project",
		VCS:  &CreateVCS{Kind: VCSGitHub, RepositoryURL: "https://example.invalid/acme/api.git"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// gitInitWithRemote makes no network call, so init+remote-add succeeds
	// for any syntactically valid repository URL and Create keeps the VCS
	// binding live; its failure path is covered by
	// TestGitInitWithRemoteRejectsFileAsTarget.
	if proj.VCS == nil {
		t.Fatalf("expected VCS binding to be set for a syntactically valid repository URL")
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestGitInitWithRemoteRejectsFileAsTarget(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	filePath := filepath.Join(dir, "not-a-directory")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := gitInitWithRemote(filePath, "https://example.invalid/acme/api.git"); err == nil {
		t.Fatalf("expected gitInitWithRemote to fail when target is a regular file")
	}
}

func TestImportExternalBindsWithoutCopying(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	externalDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(externalDir, "marker.txt"), []byte("external"), 0o644); err != nil {
		t.Fatal(err)
	}

	proj, err := ImportExternal(context.Background(), dir, ImportExternalParams{
		ExternalPath: externalDir,
		Name:         "External Project",
	})
	if err != nil {
		t.Fatalf("ImportExternal: %v", err)
	}
	if proj.ExternalPath != externalDir {
		t.Fatalf("ExternalPath = %q, want %q", proj.ExternalPath, externalDir)
	}
	if _, err := os.Stat(filepath.Join(proj.InternalPath, "marker.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected no content copied into internal path, stat err = %v", err)
	}
}

func TestExportArchiveRefusesDestinationInsideProject(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	proj, _, err := Create(context.Background(), dir, CreateParams{Name: "Exportable"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dest := filepath.Join(proj.InternalPath, "out.zip")
	err = ExportArchive(context.Background(), proj, dest)
	if !sapicerr.Is(err, sapicerr.InvalidInput) {
		t.Fatalf("ExportArchive err = %v, want InvalidInput", err)
	}
}

func TestExportThenImportArchiveRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	proj, _, err := Create(context.Background(), dir, CreateParams{Name: "Round Trip"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	resourceFile := filepath.Join(proj.InternalPath, "resources", "note.txt")
	if err := os.WriteFile(resourceFile, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(proj.InternalPath, "config.json"), []byte(`{"archived":false}`), 0o644); err != nil {
		t.Fatal(err)
	}

	archivePath := filepath.Join(t.TempDir(), "export.zip")
	if err := ExportArchive(context.Background(), proj, archivePath); err != nil {
		t.Fatalf("ExportArchive: %v", err)
	}

	imported, err := ImportArchive(context.Background(), dir, ImportArchiveParams{
		ArchivePath: archivePath,
		Name:        "Round Trip Imported",
	})
	if err != nil {
		t.Fatalf("ImportArchive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(imported.InternalPath, "resources", "note.txt")); err != nil {
		t.Fatalf("expected resources/note.txt to survive export/import: %v", err)
	}
	if _, err := os.Stat(filepath.Join(imported.InternalPath, "config.json")); !os.IsNotExist(err) {
		t.Fatalf("expected excluded config.json to be absent from archive, stat err = %v", err)
	}
}

func TestDeletePurgesDiskAndStorageScope(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	backend := memkv.New()

	proj, _, err := Create(context.Background(), dir, CreateParams{Name: "Deletable"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ctx := context.Background()
	if err := backend.Put(ctx, proj.Scope(), "resource.entry.x.order", json.RawMessage(`1`)); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	if err := Delete(ctx, proj, backend); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(proj.InternalPath); !os.IsNotExist(err) {
		t.Fatalf("expected project directory removed, stat err = %v", err)
	}
	pairs, err := backend.GetBatchByPrefix(ctx, proj.Scope(), "")
	if err != nil {
		t.Fatalf("GetBatchByPrefix: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected storage scope empty after delete, got %d pairs", len(pairs))
	}
}

func TestDeleteToleratesAlreadyMissingDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	backend := memkv.New()

	proj, _, err := Create(context.Background(), dir, CreateParams{Name: "Vanishing"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.RemoveAll(proj.InternalPath); err != nil {
		t.Fatal(err)
	}
	if err := Delete(context.Background(), proj, backend); err != nil {
		t.Fatalf("Delete on already-missing dir: %v", err)
	}
}

func TestRestoreParsesProjectsAndWarnsOnMissingAccount(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	bound, _, err := Create(context.Background(), dir, CreateParams{Name: "Bound"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	manifest := Manifest{Name: "Bound", VCS: &ManifestVCS{Kind: VCSGitHub, Repository: "https://github.com/acme/api"}}
	manifestBytes, _ := json.Marshal(manifest)
	if err := os.WriteFile(filepath.Join(bound.InternalPath, "Sapic.json"), manifestBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	accountID := "missing-account"
	cfg := Config{Archived: false, AccountID: &accountID}
	cfgBytes, _ := json.Marshal(cfg)
	if err := os.WriteFile(filepath.Join(bound.InternalPath, "config.json"), cfgBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Create(context.Background(), dir, CreateParams{Name: "Plain"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	results, err := Restore(context.Background(), dir, func(id string) bool { return false })
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	var sawMissingAccountWarning bool
	for _, r := range results {
		if r.Project != nil && r.Project.ID == bound.ID {
			for _, w := range r.Warnings {
				if w.Message == "Missing account for project repository" {
					sawMissingAccountWarning = true
				}
			}
		}
	}
	if !sawMissingAccountWarning {
		t.Fatalf("expected a missing-account warning for project %s, results = %+v", bound.ID, results)
	}
}

func TestRestoreSkipsUnreadableProjectWithWarning(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	junk := filepath.Join(dir, "not-a-project")
	if err := os.MkdirAll(junk, 0o755); err != nil {
		t.Fatal(err)
	}

	results, err := Restore(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(results) != 1 || results[0].Project != nil {
		t.Fatalf("results = %+v, want one warning-only entry", results)
	}
}

func TestRestoreOnMissingProjectsDirReturnsEmpty(t *testing.T) {
	t.Parallel()
	results, err := Restore(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}
