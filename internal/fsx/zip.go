package fsx

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sapic/core/internal/sapicerr"
)

// archive/zip is the stdlib's own container format codec; project
// export/import uses it directly (see DESIGN.md for why this stays
// stdlib). The concurrency around it — bounded parallel file reads feeding
// a single serial zip.Writer — comes from golang.org/x/sync's
// errgroup/semaphore.

// ExcludeFunc reports whether relPath (slash-separated, relative to the
// archive root) should be left out of an export.
type ExcludeFunc func(relPath string) bool

func defaultParallelism() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// ZipDir archives every regular file under srcDir into a new zip file at
// destZipPath, skipping paths for which exclude returns true. Directory
// entries are not stored; empty directories are not preserved.
func ZipDir(ctx context.Context, srcDir, destZipPath string, exclude ExcludeFunc) error {
	if err := checkCtx(ctx, "fsx.ZipDir"); err != nil {
		return err
	}

	type fileJob struct {
		relPath string
		absPath string
	}
	var jobs []fileJob

	err := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if exclude != nil && exclude(rel) {
			return nil
		}
		jobs = append(jobs, fileJob{relPath: rel, absPath: path})
		return nil
	})
	if err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.ZipDir", err)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].relPath < jobs[j].relPath })

	contents := make([][]byte, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(defaultParallelism()))
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(job.absPath)
			if err != nil {
				return err
			}
			contents[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.ZipDir", err)
	}

	out, err := os.Create(destZipPath)
	if err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.ZipDir", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return sapicerr.Wrap(sapicerr.Canceled, "fsx.ZipDir", err)
		}
		w, err := zw.Create(job.relPath)
		if err != nil {
			_ = zw.Close()
			return sapicerr.Wrap(sapicerr.Io, "fsx.ZipDir", err)
		}
		if _, err := w.Write(contents[i]); err != nil {
			_ = zw.Close()
			return sapicerr.Wrap(sapicerr.Io, "fsx.ZipDir", err)
		}
	}
	if err := zw.Close(); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.ZipDir", err)
	}
	return nil
}

// UnzipTo extracts every entry in srcZipPath under destDir, creating parent
// directories as needed. Entries are validated against zip-slip (a path
// that escapes destDir via ".." or an absolute path) before any write.
func UnzipTo(ctx context.Context, srcZipPath, destDir string) error {
	if err := checkCtx(ctx, "fsx.UnzipTo"); err != nil {
		return err
	}

	r, err := zip.OpenReader(srcZipPath)
	if err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.UnzipTo", err)
	}
	defer r.Close()

	targets := make([]string, len(r.File))
	for i, f := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
			return sapicerr.New(sapicerr.InvalidInput, "fsx.UnzipTo", "archive entry escapes destination: "+f.Name)
		}
		targets[i] = target
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(defaultParallelism()))
	for i, f := range r.File {
		i, f := i, f
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			return extractOne(f, targets[i])
		})
	}
	if err := g.Wait(); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.UnzipTo", err)
	}
	return nil
}

func extractOne(f *zip.File, target string) error {
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, f.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return err
	}
	return nil
}
