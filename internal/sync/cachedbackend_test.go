package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfs/openfs/internal/backend/memory"
	"github.com/openfs/openfs/internal/cache"
)

// TestWriteBackDrainsToInner checks that write-back mode with a 50ms
// flush interval durably reaches the inner backend without the caller
// ever calling shutdown, and that SyncStats().Synced counts both writes
// once the drain loop has had time to run.
func TestWriteBackDrainsToInner(t *testing.T) {
	ctx := context.Background()
	inner := memory.New("inner")
	cb := New(inner, ModeWriteBack, cache.New(), EngineOptions{FlushInterval: 50 * time.Millisecond})
	defer cb.Shutdown()

	require.NoError(t, cb.Write(ctx, "/a.txt", []byte("aaa")))
	require.NoError(t, cb.Write(ctx, "/b.txt", []byte("bbb")))

	require.Eventually(t, func() bool {
		return cb.SyncStats().Synced == 2
	}, time.Second, 5*time.Millisecond)

	gotA, err := inner.Read(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), gotA)

	gotB, err := inner.Read(ctx, "/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), gotB)
}

// TestWriteBackReadYourOwnWriteImmediately checks that a write-back write
// is visible through the same CachedBackend immediately, before the
// drain loop ever runs.
func TestWriteBackReadYourOwnWriteImmediately(t *testing.T) {
	ctx := context.Background()
	inner := memory.New("inner")
	cb := New(inner, ModeWriteBack, cache.New(), EngineOptions{FlushInterval: time.Hour})
	defer cb.Shutdown()

	require.NoError(t, cb.Write(ctx, "/fresh.txt", []byte("v1")))
	got, err := cb.Read(ctx, "/fresh.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = inner.Read(ctx, "/fresh.txt")
	assert.Error(t, err, "inner backend should not see the write until the drain loop runs")
}

// TestWriteThroughReadAfterWrite checks that write-through mode makes a
// write visible on the inner backend by the time Write returns.
func TestWriteThroughReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	inner := memory.New("inner")
	cb := New(inner, ModeWriteThrough, cache.New(), EngineOptions{})
	defer cb.Shutdown()

	require.NoError(t, cb.Write(ctx, "/p.txt", []byte("v")))
	got, err := cb.Read(ctx, "/p.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	innerGot, err := inner.Read(ctx, "/p.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), innerGot)
}

func TestPullMirrorRejectsWrites(t *testing.T) {
	ctx := context.Background()
	inner := memory.New("inner")
	cb := New(inner, ModePullMirror, cache.New(), EngineOptions{})
	defer cb.Shutdown()

	err := cb.Write(ctx, "/p.txt", []byte("v"))
	require.Error(t, err)
	var roErr *ReadOnlyError
	assert.ErrorAs(t, err, &roErr)
}
