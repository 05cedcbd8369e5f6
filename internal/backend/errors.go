// Package backend defines the byte-addressable storage contract every
// concrete store (filesystem, memory, S3, SFTP, WebDAV, GCS) implements.
package backend

import (
	"errors"
	"fmt"
)

// Kind identifies the taxonomy a BackendError belongs to, independent of
// the backend that raised it.
type Kind int

const (
	// KindOther is a catch-all for errors that do not fit another kind.
	KindOther Kind = iota
	KindNotFound
	KindPathTraversal
	KindNotADirectory
	KindPermissionDenied
	KindConnectionFailed
	KindPreconditionFailed
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindPathTraversal:
		return "PathTraversal"
	case KindNotADirectory:
		return "NotADirectory"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindConnectionFailed:
		return "ConnectionFailed"
	case KindPreconditionFailed:
		return "PreconditionFailed"
	case KindIO:
		return "Io"
	default:
		return "Other"
	}
}

// Error is the single error type surfaced by Backend implementations. It
// carries enough structure for callers to switch on Kind while still
// supporting errors.Is/errors.As against the wrapped Cause.
type Error struct {
	Kind       Kind
	Path       string // path the error concerns, when applicable
	BackendName string // set for KindConnectionFailed
	Expected   string // set for KindPreconditionFailed
	Actual     string // set for KindPreconditionFailed
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("not found: %s", e.Path)
	case KindPathTraversal:
		return fmt.Sprintf("path traversal rejected: %s", e.Path)
	case KindNotADirectory:
		return fmt.Sprintf("not a directory: %s", e.Path)
	case KindPermissionDenied:
		return fmt.Sprintf("permission denied: %s", e.Path)
	case KindConnectionFailed:
		return fmt.Sprintf("connection failed (%s): %v", e.BackendName, e.Cause)
	case KindPreconditionFailed:
		return fmt.Sprintf("precondition failed: expected %s, got %s", e.Expected, e.Actual)
	case KindIO:
		return fmt.Sprintf("io error: %v", e.Cause)
	default:
		if e.Message != "" {
			return e.Message
		}
		return "backend error"
	}
}

// Unwrap exposes the wrapped cause so errors.Is/As keep working across the
// Kind taxonomy.
func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrNotFound) style sentinel comparisons work
// against the Kind rather than identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// NotFound builds a KindNotFound error for path.
func NotFound(path string) error {
	return &Error{Kind: KindNotFound, Path: path}
}

// PathTraversal builds a KindPathTraversal error for path.
func PathTraversal(path string) error {
	return &Error{Kind: KindPathTraversal, Path: path}
}

// NotADirectory builds a KindNotADirectory error for path.
func NotADirectory(path string) error {
	return &Error{Kind: KindNotADirectory, Path: path}
}

// PermissionDenied builds a KindPermissionDenied error for path.
func PermissionDenied(path string) error {
	return &Error{Kind: KindPermissionDenied, Path: path}
}

// ConnectionFailed builds a KindConnectionFailed error.
func ConnectionFailed(backendName string, cause error) error {
	return &Error{Kind: KindConnectionFailed, BackendName: backendName, Cause: cause}
}

// PreconditionFailed builds a KindPreconditionFailed error for a failed CAS.
func PreconditionFailed(expected, actual string) error {
	return &Error{Kind: KindPreconditionFailed, Expected: expected, Actual: actual}
}

// IO builds a KindIO error wrapping cause.
func IO(cause error) error {
	return &Error{Kind: KindIO, Cause: cause}
}

// Other builds a KindOther error carrying a free-form message.
func Other(message string) error {
	return &Error{Kind: KindOther, Message: message}
}

// IsKind reports whether err (or something it wraps) is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
