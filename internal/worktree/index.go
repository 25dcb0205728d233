package worktree

import (
	"strings"
	"sync"
)

// index is the in-memory entry map, expansion set, and virtual-path table
// for a worktree, guarded by one reader/writer lock per worktree.
type index struct {
	mu        sync.RWMutex
	byID      map[string]*Entry
	byVirtual map[string]string // virtual path -> id
	expansion map[string]bool
}

func newIndex() *index {
	return &index{
		byID:      make(map[string]*Entry),
		byVirtual: make(map[string]string),
		expansion: make(map[string]bool),
	}
}

func (x *index) get(id string) (*Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[id]
	return e, ok
}

func (x *index) list() []*Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]*Entry, 0, len(x.byID))
	for _, e := range x.byID {
		out = append(out, e)
	}
	return out
}

func (x *index) virtualPathTaken(vp string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byVirtual[vp]
	return ok
}

func (x *index) insert(e *Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byID[e.ID] = e
	x.byVirtual[e.VirtualPath] = e.ID
	if e.Expanded {
		x.expansion[e.ID] = true
	}
}

// removeSubtree deletes id and, if it is a Dir, every descendant whose
// virtual path is nested under it. Returns the removed ids.
func (x *index) removeSubtree(id string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	root, ok := x.byID[id]
	if !ok {
		return nil
	}
	var removed []string
	for eid, e := range x.byID {
		if eid == id || virtualHasPrefix(e.VirtualPath, root.VirtualPath) {
			removed = append(removed, eid)
		}
	}
	for _, eid := range removed {
		e := x.byID[eid]
		delete(x.byID, eid)
		delete(x.byVirtual, e.VirtualPath)
		delete(x.expansion, eid)
	}
	return removed
}

// retarget rewrites the physical/virtual path prefix of id and every entry
// nested under it, after a rename or move has already succeeded on disk.
func (x *index) retarget(id, newPhysical, newVirtual string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.byID[id]
	if !ok {
		return
	}
	oldPhysical, oldVirtual := e.PhysicalPath, e.VirtualPath

	for _, other := range x.byID {
		if !virtualHasPrefix(other.VirtualPath, oldVirtual) {
			continue
		}
		delete(x.byVirtual, other.VirtualPath)
		suffix := strings.TrimPrefix(other.VirtualPath, oldVirtual)
		other.VirtualPath = newVirtual + suffix
		other.PhysicalPath = newPhysical + strings.TrimPrefix(other.PhysicalPath, oldPhysical)
		x.byVirtual[other.VirtualPath] = other.ID
	}
}

func (x *index) setExpanded(id string, expanded bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if e, ok := x.byID[id]; ok {
		e.Expanded = expanded
	}
	if expanded {
		x.expansion[id] = true
	} else {
		delete(x.expansion, id)
	}
}

func (x *index) expandedIDs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, len(x.expansion))
	for id := range x.expansion {
		out = append(out, id)
	}
	return out
}

func (x *index) loadExpansion(ids []string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		x.expansion[id] = true
	}
}
