package vfsfacade

import (
	"context"
	"fmt"

	obackend "github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/backend/gcs"
	"github.com/openfs/openfs/internal/backend/localfs"
	"github.com/openfs/openfs/internal/backend/memory"
	"github.com/openfs/openfs/internal/backend/s3"
	bsftp "github.com/openfs/openfs/internal/backend/sftp"
	"github.com/openfs/openfs/internal/backend/webdav"
	"github.com/openfs/openfs/internal/cache"
	"github.com/openfs/openfs/internal/config"
	"github.com/openfs/openfs/internal/router"
	isync "github.com/openfs/openfs/internal/sync"
)

// BuildBackend constructs the concrete Backend a config.BackendConfig
// names. It is the single registration point new backend kinds join.
func BuildBackend(ctx context.Context, name string, bc config.BackendConfig) (obackend.Backend, error) {
	switch bc.Type {
	case "fs":
		return localfs.New(name, bc.Root)
	case "memory":
		return memory.New(name), nil
	case "s3":
		return s3.New(name, s3.Config{
			Bucket: bc.Bucket, Prefix: bc.Prefix, Region: bc.Region,
			Endpoint: bc.Endpoint, AccessKeyID: bc.AccessKeyID, SecretAccessKey: bc.SecretAccessKey,
		})
	case "sftp":
		return bsftp.New(ctx, name, bsftp.Config{
			Host: bc.Host, Port: bc.Port, User: bc.User,
			Password: bc.Password, KeyFile: bc.KeyFile, Root: bc.Root,
		})
	case "webdav":
		return webdav.New(name, webdav.Config{URL: bc.URL, User: bc.User, Password: bc.Password})
	case "gcs":
		return gcs.New(ctx, name, gcs.Config{Bucket: bc.Bucket, Prefix: bc.Prefix})
	default:
		return nil, fmt.Errorf("unknown backend type %q", bc.Type)
	}
}

// BuildVFS realizes a full Document into a VFS: every mount's named
// backend is constructed once, wrapped in a CachedBackend according to
// its resolved sync mode, and registered with the router under its path.
func BuildVFS(ctx context.Context, doc *config.Document) (*VFS, error) {
	built := make(map[string]obackend.Backend, len(doc.Backends))
	mounts := make([]router.Mount, 0, len(doc.Mounts))

	for _, mc := range doc.Mounts {
		inner, ok := built[mc.Backend]
		if !ok {
			bc := doc.Backends[mc.Backend]
			b, err := BuildBackend(ctx, mc.Backend, bc)
			if err != nil {
				return nil, fmt.Errorf("mount %q: %w", mc.Path, err)
			}
			built[mc.Backend] = b
			inner = b
		}

		syncMode, err := config.ResolveSyncMode(mc.Mode, false)
		if err != nil {
			return nil, fmt.Errorf("mount %q: %w", mc.Path, err)
		}

		wrapped, readOnly, err := wrapForMode(inner, syncMode, mc)
		if err != nil {
			return nil, fmt.Errorf("mount %q: %w", mc.Path, err)
		}

		mounts = append(mounts, router.Mount{
			Path:     mc.Path,
			Backend:  wrapped,
			ReadOnly: readOnly || mc.ReadOnly,
		})
	}

	r, err := router.New(mounts)
	if err != nil {
		return nil, err
	}
	return New(r), nil
}

func wrapForMode(inner obackend.Backend, syncMode string, mc config.MountConfig) (obackend.Backend, bool, error) {
	if syncMode == "none" || syncMode == "remote" {
		return inner, false, nil
	}

	var mode isync.Mode
	switch syncMode {
	case "write_through":
		mode = isync.ModeWriteThrough
	case "write_back":
		mode = isync.ModeWriteBack
	case "pull_mirror":
		mode = isync.ModePullMirror
	default:
		return nil, false, fmt.Errorf("unresolved sync mode %q", syncMode)
	}

	c := cache.New(
		cache.WithMaxEntries(orDefault(mc.Sync.CacheEntries, 10_000)),
		cache.WithMaxBytes(int64(orDefaultBytes(mc.Sync.CacheBytes, 256<<20))),
		cache.WithTTL(orDefaultDuration(mc.Sync.CacheTTL, 0).Std()),
	)

	engineOpts := isync.EngineOptions{
		FlushInterval: orDefaultDuration(mc.Sync.FlushInterval, 0).Std(),
		MaxRetries:    mc.Sync.MaxRetries,
		BaseBackoff:   orDefaultDuration(mc.Sync.BaseBackoff, 0).Std(),
		MaxPending:    mc.Sync.MaxPending,
	}

	cb := isync.New(inner, mode, c, engineOpts)
	return cb, mode == isync.ModePullMirror, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultBytes(v config.Bytes, def int64) int64 {
	if v <= 0 {
		return def
	}
	return int64(v)
}

func orDefaultDuration(v config.Duration, def config.Duration) config.Duration {
	if v <= 0 {
		return def
	}
	return v
}
