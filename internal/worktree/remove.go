package worktree

import (
	"context"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/sapicerr"
)

// RemoveEntry deletes id from the index, removes its physical directory
// tree (missing is tolerated), and purges its storage keys and expansion
// membership.
func (w *Worktree) RemoveEntry(ctx context.Context, id string) error {
	const op = "worktree.RemoveEntry"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	entry, ok := w.idx.get(id)
	if !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}
	removedIDs := w.idx.removeSubtree(id)

	if err := fsx.RemoveAll(ctx, entry.PhysicalPath); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}

	for _, rid := range removedIDs {
		if err := w.storage.RemoveBatchByPrefix(ctx, w.scope, "resource.entry."+rid+"."); err != nil {
			return sapicerr.Wrap(sapicerr.Backend, op, err)
		}
	}

	ids, err := loadExpansion(ctx, w.storage, w.scope)
	if err != nil {
		return err
	}
	removedSet := make(map[string]bool, len(removedIDs))
	for _, rid := range removedIDs {
		removedSet[rid] = true
	}
	remaining := ids[:0]
	for _, eid := range ids {
		if !removedSet[eid] {
			remaining = append(remaining, eid)
		}
	}
	if len(remaining) != len(ids) {
		if err := persistExpansion(ctx, w.storage, w.scope, remaining); err != nil {
			return err
		}
	}
	return nil
}
