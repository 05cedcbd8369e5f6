// Package router resolves a namespace path to the mount that owns it by
// longest-prefix match over a fixed, duplicate-free set of mounts.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfs/openfs/internal/backend"
)

// Mount binds a path prefix to a Backend.
type Mount struct {
	Path     string
	Backend  backend.Backend
	ReadOnly bool
}

// Router dispatches a namespace path to its owning Mount by longest-prefix
// match. Construction rejects duplicate mount paths; resolution never
// suspends, and it cannot fail when a root mount ("/") is present, since
// that mount matches everything.
type Router struct {
	// mounts is kept sorted by descending path length so the first match
	// found walking it is the longest-prefix match.
	mounts []Mount
}

// New builds a Router from mounts. Mount paths are normalized (trailing
// slash stripped, except the root mount which stays "/"). Duplicate
// normalized paths are rejected.
func New(mounts []Mount) (*Router, error) {
	normalized := make([]Mount, len(mounts))
	seen := make(map[string]bool, len(mounts))
	for i, m := range mounts {
		m.Path = normalizeMountPath(m.Path)
		if seen[m.Path] {
			return nil, fmt.Errorf("duplicate mount path %q", m.Path)
		}
		seen[m.Path] = true
		normalized[i] = m
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		return len(normalized[i].Path) > len(normalized[j].Path)
	})
	return &Router{mounts: normalized}, nil
}

func normalizeMountPath(p string) string {
	if p == "" {
		return "/"
	}
	if p == "/" {
		return "/"
	}
	return strings.TrimSuffix(p, "/")
}

// Resolved is the outcome of resolving a namespace path: the owning mount,
// the path with the mount prefix stripped (root-relative, no leading
// slash, ready to hand to a Backend), and whether the mount is read-only.
type Resolved struct {
	Mount       Mount
	RelativePath string
}

// ErrNoMount is returned when no mount's prefix matches the path. This can
// only happen when the Router has no root ("/") mount.
type ErrNoMount struct{ Path string }

func (e *ErrNoMount) Error() string { return fmt.Sprintf("no mount for path %q", e.Path) }

// Resolve finds the mount whose path is the longest prefix of p. Adding an
// unrelated mount never changes the resolution of a path that does not
// touch its prefix, because mounts are tried longest-first and a shorter,
// unrelated mount cannot shadow the one that already matched.
func (r *Router) Resolve(p string) (Resolved, error) {
	for _, m := range r.mounts {
		if m.Path == "/" {
			return Resolved{Mount: m, RelativePath: strings.TrimPrefix(p, "/")}, nil
		}
		if p == m.Path {
			return Resolved{Mount: m, RelativePath: ""}, nil
		}
		if strings.HasPrefix(p, m.Path+"/") {
			rel := strings.TrimPrefix(p, m.Path+"/")
			return Resolved{Mount: m, RelativePath: rel}, nil
		}
	}
	return Resolved{}, &ErrNoMount{Path: p}
}

// Mounts returns a copy of the configured mounts sorted by path —
// useful for listing and diagnostics.
func (r *Router) Mounts() []Mount {
	out := make([]Mount, len(r.mounts))
	copy(out, r.mounts)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
