// Package patch implements a structured document editor: an ordered list
// of Add/Replace/Remove operations applied atomically to an in-memory JSON
// document, with per-op create-missing-segments and ignore-if-not-exists
// tolerance flags.
//
// It adapts github.com/evanphx/json-patch/v5, an RFC 6902 JSON Patch
// engine, rather than hand-rolling pointer-path traversal. The upstream
// library applies a whole patch document under one set of ApplyOptions; to
// get per-op tolerance flags this package applies one operation at a time,
// threading the resulting document into the next op — which also lets an
// earlier Add serve as the prerequisite of a later Replace.
package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/sapic/core/internal/sapicerr"
)

// OpKind identifies one of the three supported operation shapes.
type OpKind int

const (
	Add OpKind = iota
	Replace
	Remove
)

func (k OpKind) rfcName() string {
	switch k {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

func (k OpKind) String() string { return k.rfcName() }

// Op is one structured-editor operation.
type Op struct {
	Kind  OpKind
	Path  string          // JSON-pointer-like segment string, e.g. "/url/protocol"
	Value json.RawMessage // ignored for Remove

	// CreateMissingSegments auto-mints intermediate objects along Path.
	CreateMissingSegments bool
	// IgnoreIfNotExists skips this op (doc unchanged) instead of failing
	// when Path's target is absent.
	IgnoreIfNotExists bool
}

// Apply runs ops against doc in list order and returns the fully patched
// document. It applies the list as one atomic step from the caller's point
// of view: on the first non-tolerated failure it returns an error and the
// caller must not persist any partial result — only the value Apply
// eventually returns, on success, is meant to reach disk.
func Apply(doc []byte, ops []Op) ([]byte, error) {
	cur := doc
	for i, op := range ops {
		next, err := applyOne(cur, op)
		if err != nil {
			if op.IgnoreIfNotExists && looksLikeMissingTarget(err) {
				continue
			}
			return nil, sapicerr.Wrapf(sapicerr.SerDe, "patch.Apply",
				fmt.Sprintf("op %d (%s %s)", i, op.Kind, op.Path), err)
		}
		cur = next
	}
	return cur, nil
}

func applyOne(doc []byte, op Op) ([]byte, error) {
	kind := op.Kind
	ensurePath := op.CreateMissingSegments

	// evanphx/json-patch has no auto-vivify mode for "replace"; a replace
	// that should mint missing intermediate objects is equivalent to an
	// "add" at the same path (RFC 6902 add overwrites an existing member),
	// which the library does support auto-vivifying via EnsurePathExistsOnAdd.
	if kind == Replace && op.CreateMissingSegments {
		kind = Add
	}

	rfcOp := map[string]any{"op": kind.rfcName(), "path": op.Path}
	if kind != Remove {
		rfcOp["value"] = json.RawMessage(op.Value)
	}

	raw, err := json.Marshal([]map[string]any{rfcOp})
	if err != nil {
		return nil, fmt.Errorf("encode patch op: %w", err)
	}

	p, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, fmt.Errorf("decode patch op: %w", err)
	}

	opts := jsonpatch.NewApplyOptions()
	opts.EnsurePathExistsOnAdd = ensurePath
	opts.AllowMissingPathOnRemove = op.IgnoreIfNotExists && kind == Remove

	result, err := p.ApplyWithOptions(doc, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// looksLikeMissingTarget classifies evanphx/json-patch error text as "the
// target path did not exist." The library does not export a sentinel for
// this across its operation kinds, so this matches the vocabulary its
// errors consistently use.
func looksLikeMissingTarget(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"missing", "does not exist", "doesn't exist", "not found", "nonexistent target"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// Pointer builds a JSON-pointer-like path from segments, escaping "~" and
// "/" per RFC 6901. Entry-configuration editors build paths with this
// instead of hand-concatenating strings.
func Pointer(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		s = strings.ReplaceAll(s, "~", "~0")
		s = strings.ReplaceAll(s, "/", "~1")
		b.WriteString(s)
	}
	return b.String()
}

// Compact normalizes doc's JSON formatting (no indentation), the shape
// persisted to disk by internal/worktree after a successful Apply.
func Compact(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return nil, sapicerr.Wrap(sapicerr.SerDe, "patch.Compact", err)
	}
	return buf.Bytes(), nil
}
