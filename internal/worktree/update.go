package worktree

import (
	"encoding/json"
	"path/filepath"

	"context"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/patch"
	"github.com/sapic/core/internal/sapicerr"
)

// RenameEntry changes id's display name, relocating it under the same
// parent.
func (w *Worktree) RenameEntry(ctx context.Context, id, newName string) error {
	const op = "worktree.RenameEntry"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if newName == "" {
		return sapicerr.New(sapicerr.InvalidInput, op, "name must not be empty")
	}

	entry, ok := w.idx.get(id)
	if !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}

	parentPhysical := filepath.Dir(entry.PhysicalPath)
	parentVirtual := virtualParent(entry.VirtualPath)
	newPhysical := filepath.Join(parentPhysical, fsx.SanitizeSegment(newName))
	newVirtual := virtualJoin(parentVirtual, newName)

	if newPhysical == entry.PhysicalPath {
		return nil
	}
	if exists, err := fsx.Exists(newPhysical); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	} else if exists {
		return sapicerr.New(sapicerr.AlreadyExists, op, "physical path already exists: "+newPhysical)
	}
	if w.idx.virtualPathTaken(newVirtual) {
		return sapicerr.New(sapicerr.AlreadyExists, op, "virtual path already in use: "+newVirtual)
	}

	session := fsx.NewSession()
	if err := session.RenameWithRollback(ctx, entry.PhysicalPath, newPhysical); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()
	w.idx.retarget(id, newPhysical, newVirtual)
	return nil
}

// MoveEntry relocates id under a new parent, preserving its filename. The
// destination must be a live Dir entry, or the empty string for the
// worktree root.
func (w *Worktree) MoveEntry(ctx context.Context, id, newParentID string) error {
	const op = "worktree.MoveEntry"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	entry, ok := w.idx.get(id)
	if !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}

	newParentPhysical, newParentVirtual, err := w.parentPaths(newParentID)
	if err != nil {
		return err
	}

	base := filepath.Base(entry.PhysicalPath)
	newPhysical := filepath.Join(newParentPhysical, base)
	newVirtual := virtualJoin(newParentVirtual, entry.Name())

	if exists, err := fsx.Exists(newPhysical); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	} else if exists {
		return sapicerr.New(sapicerr.AlreadyExists, op, "physical path already exists: "+newPhysical)
	}
	if w.idx.virtualPathTaken(newVirtual) {
		return sapicerr.New(sapicerr.AlreadyExists, op, "virtual path already in use: "+newVirtual)
	}

	session := fsx.NewSession()
	if err := session.RenameWithRollback(ctx, entry.PhysicalPath, newPhysical); err != nil {
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()
	w.idx.retarget(id, newPhysical, newVirtual)
	entry.ParentID = newParentID
	return nil
}

// ChangeProtocol switches an Item's protocol, renaming its config file to
// match and patching its stored /url/protocol field. Component and Schema entries disallow this.
func (w *Worktree) ChangeProtocol(ctx context.Context, id string, newProtocol Protocol) error {
	const op = "worktree.ChangeProtocol"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	entry, ok := w.idx.get(id)
	if !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}
	if entry.Kind != KindItem {
		return sapicerr.New(sapicerr.InvalidInput, op, "protocol change only applies to Item entries")
	}
	if !entry.Class.protocolAllowed() {
		return sapicerr.New(sapicerr.InvalidInput, op, "protocol change not allowed for class "+entry.Class.String())
	}
	if newProtocol == entry.Protocol {
		return nil
	}

	raw, err := fsx.ReadFile(ctx, w.configPath(entry))
	if err != nil {
		return err
	}
	protoValue, _ := json.Marshal(newProtocol.String())
	patched, err := patch.Apply(raw, []patch.Op{
		{Kind: patch.Replace, Path: patch.Pointer("url", "protocol"), Value: protoValue, CreateMissingSegments: true},
	})
	if err != nil {
		return err
	}
	compact, err := patch.Compact(patched)
	if err != nil {
		return err
	}

	oldCfgPath := w.configPath(entry)
	newCfgPath := filepath.Join(entry.PhysicalPath, newProtocol.fileName())

	entry.State = StateDirty
	session := fsx.NewSession()
	if err := session.CreateFileWithContentWithRollback(ctx, newCfgPath, compact); err != nil {
		entry.State = StateClean
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	if err := session.RemoveWithRollback(ctx, oldCfgPath); err != nil {
		_ = session.Rollback()
		entry.State = StateClean
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()

	entry.Protocol = newProtocol
	if entry.Doc.URL == nil {
		entry.Doc.URL = &URLInfo{}
	}
	entry.Doc.URL.Protocol = newProtocol
	entry.State = StateClean
	return nil
}

// PatchFields applies structured-editor ops to id's configuration document:
// header, path-param, query-param, name, and description edits.
func (w *Worktree) PatchFields(ctx context.Context, id string, ops []patch.Op) error {
	const op = "worktree.PatchFields"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	entry, ok := w.idx.get(id)
	if !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}

	raw, err := fsx.ReadFile(ctx, w.configPath(entry))
	if err != nil {
		return err
	}
	patched, err := patch.Apply(raw, ops)
	if err != nil {
		return err
	}
	compact, err := patch.Compact(patched)
	if err != nil {
		return err
	}

	entry.State = StateDirty
	session := fsx.NewSession()
	if err := session.CreateFileWithContentWithRollback(ctx, w.configPath(entry), compact); err != nil {
		entry.State = StateClean
		return sapicerr.Wrap(sapicerr.Io, op, err)
	}
	session.Commit()

	var doc Document
	if err := json.Unmarshal(compact, &doc); err != nil {
		entry.State = StateClean
		return sapicerr.Wrap(sapicerr.SerDe, op, err)
	}
	entry.Doc = doc
	entry.State = StateClean
	return nil
}

// UpdateOrder writes id's display order to storage and the index.
func (w *Worktree) UpdateOrder(ctx context.Context, id string, order int) error {
	const op = "worktree.UpdateOrder"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if _, ok := w.idx.get(id); !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}
	if err := w.storage.Put(ctx, w.scope, orderKey(id), mustMarshalInt(order)); err != nil {
		return sapicerr.Wrap(sapicerr.Backend, op, err)
	}
	w.idx.mu.Lock()
	if e, ok := w.idx.byID[id]; ok {
		e.Order = order
	}
	w.idx.mu.Unlock()
	return nil
}

// UpdateExpanded adds or removes id from the persisted expansion set.
func (w *Worktree) UpdateExpanded(ctx context.Context, id string, expanded bool) error {
	const op = "worktree.UpdateExpanded"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if _, ok := w.idx.get(id); !ok {
		return sapicerr.New(sapicerr.NotFound, op, "entry not found: "+id)
	}

	ids, err := loadExpansion(ctx, w.storage, w.scope)
	if err != nil {
		return err
	}
	set := make(map[string]bool, len(ids))
	for _, existing := range ids {
		set[existing] = true
	}
	if expanded {
		set[id] = true
	} else {
		delete(set, id)
	}
	next := make([]string, 0, len(set))
	for eid := range set {
		next = append(next, eid)
	}
	if err := persistExpansion(ctx, w.storage, w.scope, next); err != nil {
		return err
	}
	w.idx.setExpanded(id, expanded)
	return nil
}
