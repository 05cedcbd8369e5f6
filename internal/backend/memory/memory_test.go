package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/backend/backendtest"
)

func TestMemoryBackendConformance(t *testing.T) {
	backendtest.RunConformance(t, New("mem"))
}

// TestMemoryListDeepAndShallow checks a two-file memory backend where one
// path is nested three levels deep and the other is a direct child:
// listing the shared parent returns the directory first.
func TestMemoryListDeepAndShallow(t *testing.T) {
	ctx := context.Background()
	b := New("mem")
	require.NoError(t, b.Write(ctx, "/a/b/c/deep.txt", []byte("deep")))
	require.NoError(t, b.Write(ctx, "/a/b/shallow.txt", []byte("shallow")))

	entries, err := b.List(ctx, "/a/b")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "c", entries[0].Name)
	assert.False(t, entries[1].IsDir)
	assert.Equal(t, "shallow.txt", entries[1].Name)
}

// TestMemoryBackendHasNoEmptyDirectories documents that a directory
// exists precisely when some file path begins with its prefix, so an
// empty directory cannot be represented.
func TestMemoryBackendHasNoEmptyDirectories(t *testing.T) {
	ctx := context.Background()
	b := New("mem")
	require.NoError(t, b.Write(ctx, "/a/file.txt", []byte("x")))
	require.NoError(t, b.Delete(ctx, "/a/file.txt"))

	exists, err := b.Exists(ctx, "/a")
	require.NoError(t, err)
	assert.False(t, exists, "directory vanishes once its last file is deleted")
}

func TestMemoryBackendCASRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New("mem")

	token, err := b.CompareAndSwap(ctx, "/cas.txt", "", []byte("v1"))
	require.NoError(t, err)

	_, err = b.CompareAndSwap(ctx, "/cas.txt", "", []byte("v2"))
	require.Error(t, err)
	assert.True(t, backend.IsKind(err, backend.KindPreconditionFailed))

	_, err = b.CompareAndSwap(ctx, "/cas.txt", token, []byte("v2"))
	require.NoError(t, err)

	got, err := b.Read(ctx, "/cas.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}
