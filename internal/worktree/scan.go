package worktree

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/sapicerr"
)

// ProgressEvent is emitted by Scan as each job starts, plus a final event
// with Done set once the queue drains.
type ProgressEvent struct {
	Path string
	Done bool
}

func scanWorkerCount() int64 {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return int64(n)
}

// Scan walks the worktree's directory tree in parallel BFS order, parsing
// each entry's configuration file and rebuilding the index from scratch.
// Individual unreadable or unrecognized sub-trees are logged and skipped,
// never fatal to the scan as a whole.
//
// The worker fan-out is a bounded errgroup+semaphore pair
// (golang.org/x/sync) rather than a hand-rolled channel pool.
func (w *Worktree) Scan(ctx context.Context, onProgress func(ProgressEvent)) error {
	const op = "worktree.Scan"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	orderByID, err := w.loadOrders(ctx)
	if err != nil {
		return err
	}
	expandedIDs, err := loadExpansion(ctx, w.storage, w.scope)
	if err != nil {
		return err
	}
	expanded := make(map[string]bool, len(expandedIDs))
	for _, id := range expandedIDs {
		expanded[id] = true
	}

	fresh := newIndex()
	fresh.loadExpansion(expandedIDs)

	sem := semaphore.NewWeighted(scanWorkerCount())
	g, gctx := errgroup.WithContext(ctx)

	var scanDir func(absPath, virtualPath, parentID string, isRoot bool) error
	scanDir = func(absPath, virtualPath, parentID string, isRoot bool) error {
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		defer sem.Release(1)

		if onProgress != nil {
			onProgress(ProgressEvent{Path: virtualPath})
		}
		if err := gctx.Err(); err != nil {
			// cancellation: discard this job's output entirely.
			return err
		}

		dirEntries, err := os.ReadDir(absPath)
		if err != nil {
			// an unreadable sub-tree is logged and skipped, not fatal.
			slog.Warn("skipping unreadable sub-tree", "component", "worktree", "path", absPath, "err", err)
			return nil
		}

		thisID := parentID
		recurse := true
		if !isRoot {
			doc, kind, protocol, found, err := loadEntryConfig(absPath, dirEntries)
			if err != nil || !found {
				slog.Warn("skipping unrecognized sub-tree", "component", "worktree", "path", absPath, "err", err)
				return nil
			}
			order := orderByID[doc.ID]
			entry := &Entry{
				ID:           doc.ID,
				ParentID:     parentID,
				VirtualPath:  virtualPath,
				PhysicalPath: absPath,
				Kind:         kind,
				Class:        doc.Metadata.Class,
				Protocol:     protocol,
				Order:        order,
				Expanded:     expanded[doc.ID],
				State:        StateClean,
				Doc:          doc,
			}
			fresh.insert(entry)
			thisID = doc.ID
			recurse = kind == KindDir
		}

		if !recurse {
			return nil
		}
		for _, de := range dirEntries {
			if !de.IsDir() {
				continue
			}
			childAbs := filepath.Join(absPath, de.Name())
			childVirtual := virtualJoin(virtualPath, fsx.DesanitizeSegment(de.Name()))
			g.Go(func() error { return scanDir(childAbs, childVirtual, thisID, false) })
		}
		return nil
	}

	g.Go(func() error { return scanDir(w.rootAbsPath, "", "", true) })

	err = g.Wait()
	if onProgress != nil {
		onProgress(ProgressEvent{Done: true})
	}
	if err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}

	w.idx = fresh
	return nil
}

func (w *Worktree) loadOrders(ctx context.Context) (map[string]int, error) {
	pairs, err := w.storage.GetBatchByPrefix(ctx, w.scope, "resource.entry.")
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.Backend, "worktree.loadOrders", err)
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		if !strings.HasSuffix(p.Key, ".order") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(p.Key, "resource.entry."), ".order")
		var n int
		if err := json.Unmarshal(p.Value, &n); err != nil {
			continue
		}
		out[id] = n
	}
	return out, nil
}

// loadEntryConfig looks for a recognized config file among dirEntries and,
// if found, parses it. found is false when the directory holds neither
// folder.sapic nor a <protocol>.sapic file — such directories are not
// entries and are skipped (but their children are never visited, since
// only Dir entries recurse).
func loadEntryConfig(absPath string, dirEntries []os.DirEntry) (Document, Kind, Protocol, bool, error) {
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if name == dirConfigFileName {
			doc, err := readDocument(filepath.Join(absPath, name))
			return doc, KindDir, ProtocolNone, err == nil, err
		}
		if proto, ok := protocolFromFileName(name); ok {
			doc, err := readDocument(filepath.Join(absPath, name))
			return doc, KindItem, proto, err == nil, err
		}
	}
	return Document{}, 0, ProtocolNone, false, nil
}

func readDocument(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	if doc.ID == "" {
		return Document{}, errors.New("missing id in " + path)
	}
	return doc, nil
}
