package backend

import (
	"context"
	"time"
)

// Entry is a lightweight directory entry returned by List and Stat.
type Entry struct {
	Path     string
	Name     string
	IsDir    bool
	Size     int64 // undefined when IsDir is true
	Modified time.Time
	HasSize  bool
	HasMod   bool
}

// Backend is the byte-addressable storage contract every concrete store
// implements. All paths are root-relative: the Router strips the mount
// prefix before a path ever reaches a Backend, and filesystem-style
// backends strip the leading slash again before touching their medium.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Name identifies the backend for diagnostics and ConnectionFailed errors.
	Name() string

	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Append(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, path string) ([]Entry, error)
	Exists(ctx context.Context, path string) (bool, error)
	Stat(ctx context.Context, path string) (Entry, error)
	Rename(ctx context.Context, from, to string) error
}

// CASBackend is implemented by backends whose medium exposes a weak
// version indicator cheaply enough to support optimistic concurrency.
// Callers that don't need CAS keep using the plain Backend operations.
type CASBackend interface {
	Backend

	// ReadWithCASToken returns the content alongside an opaque token that
	// identifies the version read.
	ReadWithCASToken(ctx context.Context, path string) ([]byte, string, error)

	// CompareAndSwap writes data iff the backend's current token for path
	// equals expected (empty expected means "must not already exist").
	// It returns the new token on success, or PreconditionFailed.
	CompareAndSwap(ctx context.Context, path string, expected string, data []byte) (string, error)
}
