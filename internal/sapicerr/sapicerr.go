// Package sapicerr defines the error taxonomy shared by every core
// component: worktree, storage, project, and profile operations all
// classify their failures into one of these kinds so callers can branch on
// errors.Is/errors.As instead of string-matching messages.
package sapicerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of a fixed set of categories.
type Kind int

const (
	// InvalidInput covers malformed paths, disallowed protocol changes,
	// and moves into a non-Dir entry.
	InvalidInput Kind = iota
	// NotFound covers missing entries, accounts, or projects.
	NotFound
	// AlreadyExists covers physical-path collisions and duplicate accounts.
	AlreadyExists
	// FailedPrecondition covers missing active profile or missing VCS binding.
	FailedPrecondition
	// Io covers underlying filesystem errors.
	Io
	// Backend covers storage engine errors not otherwise classified.
	Backend
	// Canceled covers context cancellation.
	Canceled
	// Timeout covers context deadline expiry.
	Timeout
	// SerDe covers config/manifest parse or serialization errors.
	SerDe
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case FailedPrecondition:
		return "FailedPrecondition"
	case Io:
		return "Io"
	case Backend:
		return "Backend"
	case Canceled:
		return "Canceled"
	case Timeout:
		return "Timeout"
	case SerDe:
		return "SerDe"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged, wrapped error.
type Error struct {
	Kind Kind
	Op   string // short operation name, e.g. "worktree.CreateItemEntry"
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, sapicerr.ErrNotFound) work against the Kind directly
// by comparing against a sentinel constructed with that kind and no cause.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New constructs a bare *Error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs an *Error around an existing cause.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf constructs an *Error around an existing cause with a message.
func Wrapf(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// sentinels usable with errors.Is(err, sapicerr.ErrNotFound) etc.
var (
	ErrInvalidInput       = &Error{Kind: InvalidInput}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrAlreadyExists      = &Error{Kind: AlreadyExists}
	ErrFailedPrecondition = &Error{Kind: FailedPrecondition}
	ErrIo                 = &Error{Kind: Io}
	ErrBackend            = &Error{Kind: Backend}
	ErrCanceled           = &Error{Kind: Canceled}
	ErrTimeout            = &Error{Kind: Timeout}
	ErrSerDe              = &Error{Kind: SerDe}
)

// Of returns the Kind of err if it (or something it wraps) is a *Error,
// and ok=false otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
