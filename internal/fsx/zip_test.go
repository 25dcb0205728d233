package fsx

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sapic/core/internal/sapicerr"
)

func writeTestTree(t *testing.T, root string) {
	t.Helper()
	files := map[string]string{
		"Sapic.json":                 `{"name":"demo"}`,
		"assets/icon.png":             "binary-ish",
		"resources/root/entry.json":   `{"name":"entry"}`,
		"state.sqlite3":               "should be excluded",
		".git/HEAD":                   "ref: refs/heads/main",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
}

func TestZipUnzipRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	writeTestTree(t, src)

	archive := filepath.Join(t.TempDir(), "out.zip")
	exclude := func(rel string) bool {
		return rel == "state.sqlite3" || strings.HasPrefix(rel, ".git/")
	}
	if err := ZipDir(ctx, src, archive, exclude); err != nil {
		t.Fatalf("ZipDir() error = %v", err)
	}

	dest := t.TempDir()
	if err := UnzipTo(ctx, archive, dest); err != nil {
		t.Fatalf("UnzipTo() error = %v", err)
	}

	want := []string{"Sapic.json", "assets/icon.png", "resources/root/entry.json"}
	for _, rel := range want {
		b, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", rel, err)
		}
		if len(b) == 0 {
			t.Fatalf("file %s round-tripped empty", rel)
		}
	}
	for _, rel := range []string{"state.sqlite3", ".git/HEAD"} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); !os.IsNotExist(err) {
			t.Fatalf("excluded path %s should not exist in archive, err=%v", rel, err)
		}
	}
}

func TestZipDirSkipsExcludedBeforeReading(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	writeTestTree(t, src)

	archive := filepath.Join(t.TempDir(), "out.zip")
	excludeAll := func(rel string) bool { return true }
	if err := ZipDir(ctx, src, archive, excludeAll); err != nil {
		t.Fatalf("ZipDir() error = %v", err)
	}

	dest := t.TempDir()
	if err := UnzipTo(ctx, archive, dest); err != nil {
		t.Fatalf("UnzipTo() error = %v", err)
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty archive to extract nothing, got %v", entries)
	}
}

func TestUnzipToRejectsZipSlip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// build a zip with a path-traversal entry using the stdlib writer directly,
	// since ZipDir never produces one itself.
	archive := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("setup error = %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("../evil")
	if err != nil {
		t.Fatalf("zip Create() error = %v", err)
	}
	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("zip Write() error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file Close() error = %v", err)
	}

	dest := t.TempDir()
	err = UnzipTo(ctx, archive, dest)
	if !sapicerr.Is(err, sapicerr.InvalidInput) {
		t.Fatalf("UnzipTo() of a traversal entry error = %v, want InvalidInput", err)
	}

	// the containment check still accepts a legitimate archive.
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "good"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup error = %v", err)
	}
	goodArchive := filepath.Join(t.TempDir(), "good.zip")
	if err := ZipDir(ctx, src, goodArchive, nil); err != nil {
		t.Fatalf("ZipDir() error = %v", err)
	}
	if err := UnzipTo(ctx, goodArchive, t.TempDir()); err != nil {
		t.Fatalf("UnzipTo() of a well-formed archive error = %v", err)
	}
}

func TestZipDirRespectsCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := t.TempDir()
	writeTestTree(t, src)

	err := ZipDir(ctx, src, filepath.Join(t.TempDir(), "out.zip"), nil)
	if err == nil {
		t.Fatal("ZipDir() error = nil, want error on canceled context")
	}
}
