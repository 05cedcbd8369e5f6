package sync

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/cache"
)

// Mode is one of the four CachedBackend sync modes from spec §4.4.
type Mode int

const (
	ModeNone Mode = iota
	ModeWriteThrough
	ModeWriteBack
	ModePullMirror
)

// CachedBackend wraps an inner Backend with a Cache and, in write-back
// mode, a SyncEngine. It implements backend.Backend itself so the Router
// and VFS facade never need to know whether a mount is cached.
type CachedBackend struct {
	inner backend.Backend
	mode  Mode
	c     *cache.Cache
	trie  *cache.PathTrie
	names *cache.NameSizeMap
	sync  *SyncEngine
	locks *PathLock

	// fillGroup collapses concurrent cache-miss reads of the same path into
	// a single inner-backend fetch, the way rclone's vfs/vfscache dedupes
	// concurrent downloads of one object.
	fillGroup singleflight.Group
}

// New wraps inner with a Cache and, for ModeWriteBack, a SyncEngine whose
// flush function writes straight through to inner.
func New(inner backend.Backend, mode Mode, c *cache.Cache, syncOpt EngineOptions) *CachedBackend {
	cb := &CachedBackend{
		inner: inner,
		mode:  mode,
		c:     c,
		trie:  cache.NewPathTrie(),
		names: cache.NewNameSizeMap(),
		locks: NewPathLock(),
	}
	if mode == ModeWriteBack {
		cb.sync = NewEngine(syncOpt, func(ctx context.Context, path string, content []byte) error {
			return inner.Write(ctx, path, content)
		})
	}
	return cb
}

func (cb *CachedBackend) Name() string { return cb.inner.Name() }

func cleanKey(p string) string { return strings.TrimPrefix(p, "/") }

// Shutdown stops the write-back drain loop (a no-op for other modes),
// performing one final flush first.
func (cb *CachedBackend) Shutdown() {
	if cb.sync != nil {
		cb.sync.Shutdown()
	}
}

// Stats returns the underlying cache statistics.
func (cb *CachedBackend) Stats() cache.Stats { return cb.c.Stats() }

// SyncStats returns the drain loop's counters (zero value outside write-back).
func (cb *CachedBackend) SyncStats() Stats {
	if cb.sync == nil {
		return Stats{}
	}
	return cb.sync.Stats()
}

func (cb *CachedBackend) Read(ctx context.Context, p string) ([]byte, error) {
	key := cleanKey(p)
	if data, ok := cb.c.Get(key); ok {
		return data, nil
	}
	v, err, _ := cb.fillGroup.Do(key, func() (interface{}, error) {
		data, err := cb.inner.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		cb.fillCache(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (cb *CachedBackend) fillCache(key string, data []byte) {
	cb.c.Put(key, data)
	cb.trie.Insert(key, int64(len(data)))
	cb.names.Set(key, int64(len(data)))
}

func (cb *CachedBackend) Write(ctx context.Context, p string, data []byte) error {
	key := cleanKey(p)
	switch cb.mode {
	case ModePullMirror:
		return &ReadOnlyError{Path: p}
	case ModeWriteBack:
		cb.fillCache(key, data)
		return cb.sync.QueueWrite(key, data)
	default: // None, WriteThrough
		if err := cb.inner.Write(ctx, p, data); err != nil {
			return err
		}
		cb.fillCache(key, data)
		return nil
	}
}

// ReadOnlyError is raised by a pull-mirror CachedBackend for any mutating
// call. spec §7 treats ReadOnly as a VFS-facade-level error, not a member
// of the backend.Kind taxonomy, so it is its own type rather than a
// *backend.Error variant.
type ReadOnlyError struct{ Path string }

func (e *ReadOnlyError) Error() string { return "read-only mount: " + e.Path }

func (cb *CachedBackend) Append(ctx context.Context, p string, data []byte) error {
	key := cleanKey(p)
	switch cb.mode {
	case ModePullMirror:
		return &ReadOnlyError{Path: p}
	case ModeWriteBack:
		existing, err := cb.Read(ctx, p)
		if err != nil && !backend.IsKind(err, backend.KindNotFound) {
			return err
		}
		combined := append(append([]byte{}, existing...), data...)
		cb.fillCache(key, combined)
		return cb.sync.QueueWrite(key, combined)
	default:
		if err := cb.inner.Append(ctx, p, data); err != nil {
			return err
		}
		cb.c.Remove(key) // invalidate; next read refills from inner
		return nil
	}
}

func (cb *CachedBackend) Delete(ctx context.Context, p string) error {
	key := cleanKey(p)
	switch cb.mode {
	case ModePullMirror:
		return &ReadOnlyError{Path: p}
	case ModeWriteBack:
		cb.locks.Lock(key)
		defer cb.locks.Unlock(key)

		locallyPresent := cb.c.Contains(key)
		err := cb.inner.Delete(ctx, p)
		if err != nil {
			if backend.IsKind(err, backend.KindNotFound) {
				if !locallyPresent {
					return err
				}
				// succeed: present locally even though inner never had it
			} else {
				return err
			}
		}
		cb.c.Remove(key)
		cb.trie.Remove(key)
		cb.names.Delete(key)
		return cb.sync.QueueDelete(key)
	default:
		if err := cb.inner.Delete(ctx, p); err != nil {
			return err
		}
		cb.c.Remove(key)
		cb.trie.Remove(key)
		cb.names.Delete(key)
		return nil
	}
}

func (cb *CachedBackend) Rename(ctx context.Context, from, to string) error {
	fromKey, toKey := cleanKey(from), cleanKey(to)
	switch cb.mode {
	case ModePullMirror:
		return &ReadOnlyError{Path: from}
	case ModeWriteBack:
		cb.locks.Lock(fromKey)
		defer cb.locks.Unlock(fromKey)

		content, cached := cb.c.Get(fromKey)
		innerHasFrom, err := cb.inner.Exists(ctx, from)
		if err != nil {
			return err
		}
		if innerHasFrom {
			if err := cb.inner.Rename(ctx, from, to); err != nil {
				return err
			}
		}
		cb.c.Remove(fromKey)
		cb.trie.Remove(fromKey)
		cb.names.Delete(fromKey)
		if cached {
			cb.fillCache(toKey, content)
		}
		_ = cb.sync.QueueDelete(fromKey)
		_ = cb.sync.QueueDelete(toKey)
		if cached {
			return cb.sync.QueueWrite(toKey, content)
		}
		return nil
	default:
		cb.c.Remove(fromKey)
		cb.trie.Remove(fromKey)
		cb.names.Delete(fromKey)
		return cb.inner.Rename(ctx, from, to)
	}
}

func (cb *CachedBackend) Exists(ctx context.Context, p string) (bool, error) {
	key := cleanKey(p)
	if cb.c.Contains(key) || cb.trie.HasPrefix(key) {
		return true, nil
	}
	return cb.inner.Exists(ctx, p)
}

func (cb *CachedBackend) Stat(ctx context.Context, p string) (backend.Entry, error) {
	key := cleanKey(p)
	if data, ok := cb.c.Get(key); ok {
		return backend.Entry{Path: p, Name: baseName(p), IsDir: false, Size: int64(len(data)), HasSize: true}, nil
	}
	if cb.trie.HasPrefix(key) {
		return backend.Entry{Path: p, Name: baseName(p), IsDir: true}, nil
	}
	return cb.inner.Stat(ctx, p)
}

func baseName(p string) string {
	p = strings.TrimSuffix(p, "/")
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

func (cb *CachedBackend) List(ctx context.Context, p string) ([]backend.Entry, error) {
	key := cleanKey(p)
	entries, err := cb.inner.List(ctx, p)
	if err != nil {
		if !backend.IsKind(err, backend.KindNotFound) || !cb.trie.HasPrefix(key) {
			return nil, err
		}
		entries = nil
	}

	byName := make(map[string]backend.Entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
		order = append(order, e.Name)
	}

	for _, child := range cb.trie.ListCachedChildren(key) {
		existing, ok := byName[child.Name]
		childPath := strings.TrimSuffix(p, "/") + "/" + child.Name
		if p == "" || p == "/" {
			childPath = "/" + child.Name
		}
		if !ok {
			byName[child.Name] = backend.Entry{
				Path: childPath, Name: child.Name, IsDir: child.IsDir,
				Size: child.Size, HasSize: child.HasSize && !child.IsDir,
			}
			order = append(order, child.Name)
		} else if !child.IsDir && child.HasSize {
			existing.Size = child.Size
			existing.HasSize = true
			byName[child.Name] = existing
		}
	}

	var dirs, files []backend.Entry
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true
		e := byName[name]
		if e.IsDir {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	sortEntries(dirs)
	sortEntries(files)
	return append(dirs, files...), nil
}

func sortEntries(es []backend.Entry) {
	for i := 1; i < len(es); i++ {
		for j := i; j > 0 && es[j].Name < es[j-1].Name; j-- {
			es[j], es[j-1] = es[j-1], es[j]
		}
	}
}

var _ backend.Backend = (*CachedBackend)(nil)
