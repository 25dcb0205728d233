package worktree

import "strings"

// Virtual paths are logical, "/"-joined strings independent of the host
// OS's path separator — they are never passed to the filesystem directly,
// only sanitized segment-by-segment into a physical path (internal/fsx).

func virtualJoin(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func virtualParent(vp string) string {
	i := strings.LastIndexByte(vp, '/')
	if i < 0 {
		return ""
	}
	return vp[:i]
}

func virtualBase(vp string) string {
	i := strings.LastIndexByte(vp, '/')
	if i < 0 {
		return vp
	}
	return vp[i+1:]
}

// virtualHasPrefix reports whether vp is prefix itself or a descendant of
// prefix in the virtual path tree (used to move/rename whole subtrees).
func virtualHasPrefix(vp, prefix string) bool {
	if prefix == "" {
		return true
	}
	return vp == prefix || strings.HasPrefix(vp, prefix+"/")
}
