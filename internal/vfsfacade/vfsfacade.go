// Package vfsfacade exposes the unified namespace: a single set of
// operations over every mounted backend, dispatched by the router and
// optionally cached/synced per mount, the way rclone's VFS layer sits
// in front of its Fs implementations.
package vfsfacade

import (
	"context"
	"time"

	"github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/router"
	isync "github.com/openfs/openfs/internal/sync"
)

// VFS is the facade every caller (CLI, server, watch collaborator, index
// pipeline) uses instead of talking to a Backend or Router directly. It
// enforces mount-level read-only policy uniformly, regardless of whether
// the underlying mount is itself a pull-mirror CachedBackend.
type VFS struct {
	r *router.Router
}

// New wraps an already-built Router.
func New(r *router.Router) *VFS {
	return &VFS{r: r}
}

// ErrReadOnly is returned for any mutating call against a read-only mount.
type ErrReadOnly struct{ Path string }

func (e *ErrReadOnly) Error() string { return "read-only mount: " + e.Path }

func (v *VFS) resolve(p string) (router.Resolved, error) {
	return v.r.Resolve(p)
}

func (v *VFS) Read(ctx context.Context, p string) ([]byte, error) {
	res, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	return res.Mount.Backend.Read(ctx, res.RelativePath)
}

func (v *VFS) Write(ctx context.Context, p string, data []byte) error {
	res, err := v.resolve(p)
	if err != nil {
		return err
	}
	if res.Mount.ReadOnly {
		return &ErrReadOnly{Path: p}
	}
	return res.Mount.Backend.Write(ctx, res.RelativePath, data)
}

func (v *VFS) Append(ctx context.Context, p string, data []byte) error {
	res, err := v.resolve(p)
	if err != nil {
		return err
	}
	if res.Mount.ReadOnly {
		return &ErrReadOnly{Path: p}
	}
	return res.Mount.Backend.Append(ctx, res.RelativePath, data)
}

func (v *VFS) Delete(ctx context.Context, p string) error {
	res, err := v.resolve(p)
	if err != nil {
		return err
	}
	if res.Mount.ReadOnly {
		return &ErrReadOnly{Path: p}
	}
	return res.Mount.Backend.Delete(ctx, res.RelativePath)
}

func (v *VFS) Exists(ctx context.Context, p string) (bool, error) {
	res, err := v.resolve(p)
	if err != nil {
		return false, err
	}
	return res.Mount.Backend.Exists(ctx, res.RelativePath)
}

func (v *VFS) Stat(ctx context.Context, p string) (backend.Entry, error) {
	res, err := v.resolve(p)
	if err != nil {
		return backend.Entry{}, err
	}
	return res.Mount.Backend.Stat(ctx, res.RelativePath)
}

func (v *VFS) List(ctx context.Context, p string) ([]backend.Entry, error) {
	res, err := v.resolve(p)
	if err != nil {
		return nil, err
	}
	return res.Mount.Backend.List(ctx, res.RelativePath)
}

// Rename requires both paths to resolve to the same mount: the facade
// never moves data across backends transparently, matching spec §4.2's
// router contract of one owning mount per path.
func (v *VFS) Rename(ctx context.Context, from, to string) error {
	fromRes, err := v.resolve(from)
	if err != nil {
		return err
	}
	toRes, err := v.resolve(to)
	if err != nil {
		return err
	}
	if fromRes.Mount.ReadOnly {
		return &ErrReadOnly{Path: from}
	}
	if fromRes.Mount.Path != toRes.Mount.Path {
		return &ErrCrossMountRename{From: from, To: to}
	}
	return fromRes.Mount.Backend.Rename(ctx, fromRes.RelativePath, toRes.RelativePath)
}

// ErrCrossMountRename is returned when Rename's endpoints resolve to
// different mounts.
type ErrCrossMountRename struct{ From, To string }

func (e *ErrCrossMountRename) Error() string {
	return "cannot rename across mounts: " + e.From + " -> " + e.To
}

// Mounts exposes the router's mount list for diagnostics (e.g. the CLI's
// serve command).
func (v *VFS) Mounts() []router.Mount { return v.r.Mounts() }

// Shutdown stops every mount's write-back drain loop, if any.
func (v *VFS) Shutdown() {
	for _, m := range v.r.Mounts() {
		if cb, ok := m.Backend.(*isync.CachedBackend); ok {
			cb.Shutdown()
		}
	}
}

// BackendStat is a lightweight connection-health snapshot for a single
// mount, probed on demand rather than kept live, the way a "doctor"
// command samples state once instead of running a background collector.
type BackendStat struct {
	MountPath   string
	BackendName string
	ReadOnly    bool
	Reachable   bool
	Latency     time.Duration
	Error       string
}

// Doctor probes every mount with a cheap existence check against its
// root and reports whether the backend answered within timeout. It never
// returns an error itself: an unreachable backend is reported as a
// BackendStat with Reachable false, not a failed call.
func (v *VFS) Doctor(ctx context.Context, timeout time.Duration) []BackendStat {
	mounts := v.r.Mounts()
	stats := make([]BackendStat, len(mounts))
	for i, m := range mounts {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		_, err := m.Backend.Exists(probeCtx, "/")
		elapsed := time.Since(start)
		cancel()

		stat := BackendStat{
			MountPath:   m.Path,
			BackendName: m.Backend.Name(),
			ReadOnly:    m.ReadOnly,
			Reachable:   err == nil,
			Latency:     elapsed,
		}
		if err != nil {
			stat.Error = err.Error()
		}
		stats[i] = stat
	}
	return stats
}
