package worktree

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/sapicerr"
)

// Worktree owns one project's entry index and mediates every mutation to
// its on-disk tree and its storage scope: one struct fronting a store, an
// index, and background scan work behind a single API. There is no
// in-flight tracking of scans, and Scan calls are not serialized against
// each other.
type Worktree struct {
	rootAbsPath string
	storage     kv.Backend
	scope       kv.Scope
	idx         *index
}

// New constructs a Worktree rooted at rootAbsPath (the project's
// resources/ directory), backed by storage under scope.
func New(rootAbsPath string, storage kv.Backend, scope kv.Scope) *Worktree {
	return &Worktree{
		rootAbsPath: rootAbsPath,
		storage:     storage,
		scope:       scope,
		idx:         newIndex(),
	}
}

// Describe returns the entry with the given id, if present in the index.
func (w *Worktree) Describe(id string) (*Entry, bool) {
	return w.idx.get(id)
}

// List returns every entry currently in the index, in unspecified order.
func (w *Worktree) List() []*Entry {
	return w.idx.list()
}

// ExpandedIDs returns the set of entry ids the UI currently shows expanded.
func (w *Worktree) ExpandedIDs() []string {
	return w.idx.expandedIDs()
}

func orderKey(id string) string { return "resource.entry." + id + ".order" }

const expandedItemsKey = "expandedItems"

// itemConfigFileName is the config file name for a protocol-less Item
// (Component/Schema entries, for which protocol is optional).
const itemConfigFileName = "item.sapic"

func configFileName(kind Kind, protocol Protocol) string {
	if kind == KindDir {
		return dirConfigFileName
	}
	if protocol == ProtocolNone {
		return itemConfigFileName
	}
	return protocol.fileName()
}

func (w *Worktree) configPath(e *Entry) string {
	return filepath.Join(e.PhysicalPath, configFileName(e.Kind, e.Protocol))
}

// parentPaths resolves parentID to its (physical, virtual) path pair. The
// empty id means the worktree root. A non-empty id must name a live Dir
// entry.
func (w *Worktree) parentPaths(parentID string) (physical, virtual string, err error) {
	if parentID == "" {
		return w.rootAbsPath, "", nil
	}
	parent, ok := w.idx.get(parentID)
	if !ok {
		return "", "", sapicerr.New(sapicerr.NotFound, "worktree.parentPaths", "parent entry not found: "+parentID)
	}
	if parent.Kind != KindDir {
		return "", "", sapicerr.New(sapicerr.InvalidInput, "worktree.parentPaths", "parent is not a Dir entry: "+parentID)
	}
	return parent.PhysicalPath, parent.VirtualPath, nil
}

func persistExpansion(ctx context.Context, storage kv.Backend, scope kv.Scope, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return sapicerr.Wrap(sapicerr.SerDe, "worktree.persistExpansion", err)
	}
	if err := storage.Put(ctx, scope, expandedItemsKey, raw); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, "worktree.persistExpansion", err)
	}
	return nil
}

func loadExpansion(ctx context.Context, storage kv.Backend, scope kv.Scope) ([]string, error) {
	v, ok, err := storage.Get(ctx, scope, expandedItemsKey)
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.Backend, "worktree.loadExpansion", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, "worktree.loadExpansion", err)
	}
	return ids, nil
}

// checkCtx reports a Canceled/Timeout sapicerr for a context already past
// its deadline, the same check every exported operation opens with.
func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		if err == context.DeadlineExceeded {
			return sapicerr.Wrap(sapicerr.Timeout, op, err)
		}
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	return nil
}
