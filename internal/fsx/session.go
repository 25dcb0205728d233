// Package fsx is the filesystem façade: context-aware
// create/read/rename/remove/zip/unzip, a rollback journal for multi-step
// mutations, and the sanitize/desanitize bijection between virtual and
// physical path segments.
//
// The rollback journal plays the same role a SQL transaction does (begin,
// commit on success, roll back on error) but generalized to disk: an
// ordered list of filesystem inverse-ops, replayed in reverse on
// Rollback(). Disk has no native transactions, so the journal is the
// transaction.
package fsx

import (
	"context"
	"fmt"
	"os"

	"github.com/sapic/core/internal/sapicerr"
)

// inverseOp undoes one filesystem mutation already applied to disk.
type inverseOp struct {
	describe string
	undo     func() error
}

// Session collects the inverse of every mutation performed through it, in
// order, so that a caller who hits a later failure (e.g. a storage write)
// can call Rollback to leave the filesystem as it found it. A Session is
// not safe for concurrent use — callers serialize the sequence of steps
// that make up one logical operation.
type Session struct {
	ops []inverseOp
}

// NewSession starts a new rollback journal.
func NewSession() *Session {
	return &Session{}
}

func (s *Session) record(describe string, undo func() error) {
	s.ops = append(s.ops, inverseOp{describe: describe, undo: undo})
}

// Commit discards the journal without replaying it. Call this once every
// step of the logical operation has succeeded and the caller no longer
// needs to be able to undo them.
func (s *Session) Commit() {
	s.ops = nil
}

// Rollback replays every recorded inverse op in reverse order, best-effort:
// it keeps going after an individual undo fails so that one stuck step
// doesn't block every other step from unwinding, and returns the first
// error it encountered (if any) wrapped with how many of the N steps
// failed to undo.
func (s *Session) Rollback() error {
	var firstErr error
	failed := 0
	for i := len(s.ops) - 1; i >= 0; i-- {
		op := s.ops[i]
		if err := op.undo(); err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("undo %q: %w", op.describe, err)
			}
		}
	}
	s.ops = nil
	if firstErr != nil {
		return sapicerr.Wrapf(sapicerr.Io, "fsx.Rollback",
			fmt.Sprintf("%d step(s) failed to undo", failed), firstErr)
	}
	return nil
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return sapicerr.Wrap(sapicerr.Canceled, op, err)
	}
	return nil
}

// CreateDirWithRollback creates path (and records its removal as the
// inverse op). The directory's parent must already exist; callers build up
// a tree one CreateDirWithRollback at a time, matching how the worktree
// engine walks virtual paths segment by segment.
func (s *Session) CreateDirWithRollback(ctx context.Context, path string) error {
	if err := checkCtx(ctx, "fsx.CreateDirWithRollback"); err != nil {
		return err
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.CreateDirWithRollback", err)
	}
	s.record("rmdir "+path, func() error {
		err := os.RemoveAll(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	})
	return nil
}

// CreateFileWithContentWithRollback writes content to path. If a file
// already existed there, its previous content is captured and restored on
// rollback; otherwise rollback removes the file entirely.
func (s *Session) CreateFileWithContentWithRollback(ctx context.Context, path string, content []byte) error {
	if err := checkCtx(ctx, "fsx.CreateFileWithContentWithRollback"); err != nil {
		return err
	}

	prior, err := os.ReadFile(path)
	existed := err == nil
	if err != nil && !os.IsNotExist(err) {
		return sapicerr.Wrap(sapicerr.Io, "fsx.CreateFileWithContentWithRollback", err)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.CreateFileWithContentWithRollback", err)
	}

	if existed {
		s.record("restore "+path, func() error {
			return os.WriteFile(path, prior, 0o644)
		})
	} else {
		s.record("remove "+path, func() error {
			err := os.Remove(path)
			if os.IsNotExist(err) {
				return nil
			}
			return err
		})
	}
	return nil
}

// RenameWithRollback moves oldPath to newPath and records the reverse move.
func (s *Session) RenameWithRollback(ctx context.Context, oldPath, newPath string) error {
	if err := checkCtx(ctx, "fsx.RenameWithRollback"); err != nil {
		return err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.RenameWithRollback", err)
	}
	s.record(fmt.Sprintf("rename %s back to %s", newPath, oldPath), func() error {
		return os.Rename(newPath, oldPath)
	})
	return nil
}

// RemoveWithRollback removes the file at path, capturing enough to restore
// it: the file is buffered in memory, a directory is
// rejected (removing a populated subtree is not reversible in-process;
// callers that need to remove a directory tree without rollback should use
// RemoveAll instead, after their own journal has already committed).
func (s *Session) RemoveWithRollback(ctx context.Context, path string) error {
	if err := checkCtx(ctx, "fsx.RemoveWithRollback"); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.RemoveWithRollback", err)
	}
	if info.IsDir() {
		return sapicerr.New(sapicerr.InvalidInput, "fsx.RemoveWithRollback", "path is a directory; use RemoveAll after commit")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.RemoveWithRollback", err)
	}
	mode := info.Mode()
	if err := os.Remove(path); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.RemoveWithRollback", err)
	}
	s.record("restore "+path, func() error {
		return os.WriteFile(path, content, mode)
	})
	return nil
}

// RemoveAll removes path (file or directory tree), tolerating the case
// where it is already gone. This is not journaled: remove_entry
// treats a missing target as success, not as something to roll back.
func RemoveAll(ctx context.Context, path string) error {
	if err := checkCtx(ctx, "fsx.RemoveAll"); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return sapicerr.Wrap(sapicerr.Io, "fsx.RemoveAll", err)
	}
	return nil
}

// ReadFile reads path in full, respecting ctx cancellation before the call
// (the read itself is a single syscall and cannot be interrupted
// mid-flight by a stdlib context).
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := checkCtx(ctx, "fsx.ReadFile"); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sapicerr.Wrap(sapicerr.NotFound, "fsx.ReadFile", err)
		}
		return nil, sapicerr.Wrap(sapicerr.Io, "fsx.ReadFile", err)
	}
	return b, nil
}

// Exists reports whether path exists, treating any stat error other than
// "not found" as a hard I/O error.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, sapicerr.Wrap(sapicerr.Io, "fsx.Exists", err)
}
