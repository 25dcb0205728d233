package worktree

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sapic/core/internal/fsx"
	"github.com/sapic/core/internal/kv"
	"github.com/sapic/core/internal/sapicerr"
)

// CreateItemEntry creates a leaf Item entry.
func (w *Worktree) CreateItemEntry(ctx context.Context, parentID, name string, class Class, protocol Protocol, order int, expanded bool) (*Entry, error) {
	if name == "" {
		return nil, sapicerr.New(sapicerr.InvalidInput, "worktree.CreateItemEntry", "name must not be empty")
	}
	doc := Document{
		Metadata: Metadata{Name: name, Class: class},
	}
	if protocol != ProtocolNone {
		doc.URL = &URLInfo{Protocol: protocol}
	}
	return w.createEntry(ctx, "worktree.CreateItemEntry", parentID, name, KindItem, class, protocol, order, expanded, doc)
}

// CreateDirEntry creates a Dir entry.
func (w *Worktree) CreateDirEntry(ctx context.Context, parentID, name string, class Class, order int, expanded bool) (*Entry, error) {
	if name == "" {
		return nil, sapicerr.New(sapicerr.InvalidInput, "worktree.CreateDirEntry", "name must not be empty")
	}
	doc := Document{Metadata: Metadata{Name: name, Class: class}}
	return w.createEntry(ctx, "worktree.CreateDirEntry", parentID, name, KindDir, class, ProtocolNone, order, expanded, doc)
}

func (w *Worktree) createEntry(ctx context.Context, op, parentID, name string, kind Kind, class Class, protocol Protocol, order int, expanded bool, doc Document) (*Entry, error) {
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	parentPhysical, parentVirtual, err := w.parentPaths(parentID)
	if err != nil {
		return nil, err
	}

	sanitized := fsx.SanitizeSegment(name)
	physicalPath := filepath.Join(parentPhysical, sanitized)
	virtualPath := virtualJoin(parentVirtual, name)

	if exists, err := fsx.Exists(physicalPath); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	} else if exists {
		return nil, sapicerr.New(sapicerr.AlreadyExists, op, "physical path already exists: "+physicalPath)
	}
	if w.idx.virtualPathTaken(virtualPath) {
		return nil, sapicerr.New(sapicerr.AlreadyExists, op, "virtual path already in use: "+virtualPath)
	}

	id := uuid.NewString()
	doc.ID = id

	configBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
	}

	session := fsx.NewSession()
	if err := session.CreateDirWithRollback(ctx, physicalPath); err != nil {
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}
	cfgPath := filepath.Join(physicalPath, configFileName(kind, protocol))
	if err := session.CreateFileWithContentWithRollback(ctx, cfgPath, configBytes); err != nil {
		_ = session.Rollback()
		return nil, sapicerr.Wrap(sapicerr.Io, op, err)
	}

	entry := &Entry{
		ID:           id,
		ParentID:     parentID,
		VirtualPath:  virtualPath,
		PhysicalPath: physicalPath,
		Kind:         kind,
		Class:        class,
		Protocol:     protocol,
		Order:        order,
		Expanded:     expanded,
		State:        StateCreated,
		Doc:          doc,
	}

	items := []kv.Pair{{Key: orderKey(id), Value: mustMarshalInt(order)}}
	if expanded {
		ids, err := loadExpansion(ctx, w.storage, w.scope)
		if err != nil {
			_ = session.Rollback()
			return nil, err
		}
		ids = append(ids, id)
		raw, err := json.Marshal(ids)
		if err != nil {
			_ = session.Rollback()
			return nil, sapicerr.Wrap(sapicerr.SerDe, op, err)
		}
		items = append(items, kv.Pair{Key: expandedItemsKey, Value: raw})
	}
	if err := w.storage.PutBatch(ctx, w.scope, items); err != nil {
		_ = session.Rollback()
		return nil, sapicerr.Wrap(sapicerr.Backend, op, err)
	}

	session.Commit()
	w.idx.insert(entry)
	entry.State = StateClean
	return entry, nil
}

func mustMarshalInt(v int) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
