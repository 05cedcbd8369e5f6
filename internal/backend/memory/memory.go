// Package memory provides an in-memory Backend, mainly for tests and for
// mounts that want ephemeral scratch space.
package memory

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openfs/openfs/internal/backend"
)

// object is one stored file: bytes plus a monotonic version counter used
// as the backend's CAS token.
type object struct {
	data     []byte
	modified time.Time
	version  uint64
}

// Backend is an in-memory implementation of backend.Backend. Directories
// are not stored explicitly: a directory exists precisely when some file
// path begins with its prefix, matching the upstream memory backend's
// bucket semantics — this Backend cannot represent an empty directory.
type Backend struct {
	name string

	mu      sync.RWMutex
	objects map[string]*object
}

// New creates an empty in-memory Backend identified by name.
func New(name string) *Backend {
	return &Backend{
		name:    name,
		objects: make(map[string]*object),
	}
}

func (b *Backend) Name() string { return b.name }

func clean(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func (b *Backend) Read(ctx context.Context, p string) ([]byte, error) {
	data, _, err := b.ReadWithCASToken(ctx, p)
	return data, err
}

func (b *Backend) ReadWithCASToken(ctx context.Context, p string) ([]byte, string, error) {
	key := clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.objects[key]
	if !ok {
		return nil, "", backend.NotFound(p)
	}
	out := make([]byte, len(o.data))
	copy(out, o.data)
	return out, tokenOf(o.version), nil
}

func tokenOf(v uint64) string { return strconv.FormatUint(v, 10) }

func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	key := clean(p)
	if key == "" {
		return backend.Other("cannot write to root")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[key]
	if !ok {
		o = &object{}
		b.objects[key] = o
	}
	o.data = cp
	o.modified = time.Now()
	o.version++
	return nil
}

func (b *Backend) CompareAndSwap(ctx context.Context, p string, expected string, data []byte) (string, error) {
	key := clean(p)
	if key == "" {
		return "", backend.Other("cannot write to root")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[key]
	current := ""
	if ok {
		current = tokenOf(o.version)
	}
	if current != expected {
		return "", backend.PreconditionFailed(expected, current)
	}
	if !ok {
		o = &object{}
		b.objects[key] = o
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	o.data = cp
	o.modified = time.Now()
	o.version++
	return tokenOf(o.version), nil
}

func (b *Backend) Append(ctx context.Context, p string, data []byte) error {
	existing, err := b.Read(ctx, p)
	if err != nil {
		if !backend.IsKind(err, backend.KindNotFound) {
			return err
		}
		existing = nil
	}
	combined := append(append([]byte{}, existing...), data...)
	return b.Write(ctx, p, combined)
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	key := clean(p)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return backend.NotFound(p)
	}
	delete(b.objects, key)
	return nil
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	key := clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.objects[key]; ok {
		return true, nil
	}
	return b.hasPrefixLocked(key), nil
}

// hasPrefixLocked reports whether any stored key begins with prefix + "/",
// i.e. whether prefix would behave like a directory. Caller holds mu.
func (b *Backend) hasPrefixLocked(prefix string) bool {
	pfx := prefix + "/"
	if prefix == "" {
		return len(b.objects) > 0
	}
	for k := range b.objects {
		if strings.HasPrefix(k, pfx) {
			return true
		}
	}
	return false
}

func (b *Backend) Stat(ctx context.Context, p string) (backend.Entry, error) {
	key := clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()
	if o, ok := b.objects[key]; ok {
		return backend.Entry{
			Path: p, Name: path.Base(key), IsDir: false,
			Size: int64(len(o.data)), HasSize: true,
			Modified: o.modified, HasMod: true,
		}, nil
	}
	if b.hasPrefixLocked(key) {
		name := ""
		if key != "" {
			name = path.Base(key)
		}
		return backend.Entry{Path: p, Name: name, IsDir: true}, nil
	}
	return backend.Entry{}, backend.NotFound(p)
}

func (b *Backend) List(ctx context.Context, p string) ([]backend.Entry, error) {
	prefix := clean(p)
	b.mu.RLock()
	defer b.mu.RUnlock()

	dirs := map[string]bool{}
	files := map[string]int64{}

	pfx := prefix
	if pfx != "" {
		pfx += "/"
	}
	seenAny := prefix == ""
	for k, o := range b.objects {
		if !strings.HasPrefix(k, pfx) {
			continue
		}
		seenAny = true
		rest := strings.TrimPrefix(k, pfx)
		if rest == "" {
			continue
		}
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			dirs[rest[:idx]] = true
		} else {
			files[rest] = int64(len(o.data))
		}
	}
	if !seenAny && prefix != "" {
		return nil, backend.NotFound(p)
	}

	entries := make([]backend.Entry, 0, len(dirs)+len(files))
	dirNames := make([]string, 0, len(dirs))
	for d := range dirs {
		dirNames = append(dirNames, d)
	}
	sort.Strings(dirNames)
	for _, d := range dirNames {
		entries = append(entries, backend.Entry{
			Path: joinKey(prefix, d), Name: d, IsDir: true,
		})
	}
	fileNames := make([]string, 0, len(files))
	for f := range files {
		fileNames = append(fileNames, f)
	}
	sort.Strings(fileNames)
	for _, f := range fileNames {
		entries = append(entries, backend.Entry{
			Path: joinKey(prefix, f), Name: f, IsDir: false,
			Size: files[f], HasSize: true,
		})
	}
	return entries, nil
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return "/" + name
	}
	return "/" + prefix + "/" + name
}

func (b *Backend) Rename(ctx context.Context, from, to string) error {
	fromKey, toKey := clean(from), clean(to)
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[fromKey]
	if !ok {
		return backend.NotFound(from)
	}
	delete(b.objects, fromKey)
	o.version++
	b.objects[toKey] = o
	return nil
}

var _ backend.CASBackend = (*Backend)(nil)
