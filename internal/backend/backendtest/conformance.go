// Package backendtest holds a conformance suite shared across every
// backend.Backend implementation, the way a single parametrized suite run
// against multiple backends pins down behavioral consistency rather than
// letting each backend's test file silently diverge.
package backendtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfs/openfs/internal/backend"
)

// RunConformance exercises every mandatory Backend operation against b:
// read-after-write, the listing ordering boundary behavior, and the
// basic CRUD contract every implementation must uphold.
func RunConformance(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("WriteRead", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/hello.txt", []byte("hello world")))
		got, err := b.Read(ctx, "/hello.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), got)
	})

	t.Run("ReadMissingIsNotFound", func(t *testing.T) {
		_, err := b.Read(ctx, "/does-not-exist.txt")
		require.Error(t, err)
		assert.True(t, backend.IsKind(err, backend.KindNotFound))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/over.txt", []byte("first")))
		require.NoError(t, b.Write(ctx, "/over.txt", []byte("second")))
		got, err := b.Read(ctx, "/over.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/gone.txt", []byte("x")))
		require.NoError(t, b.Delete(ctx, "/gone.txt"))
		exists, err := b.Exists(ctx, "/gone.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("DeleteMissingIsNotFound", func(t *testing.T) {
		err := b.Delete(ctx, "/never-existed.txt")
		require.Error(t, err)
		assert.True(t, backend.IsKind(err, backend.KindNotFound))
	})

	t.Run("AppendToExisting", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/append.txt", []byte("first")))
		require.NoError(t, b.Append(ctx, "/append.txt", []byte(" second")))
		got, err := b.Read(ctx, "/append.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("first second"), got)
	})

	t.Run("AppendToNewCreates", func(t *testing.T) {
		require.NoError(t, b.Append(ctx, "/new-append.txt", []byte("created")))
		got, err := b.Read(ctx, "/new-append.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("created"), got)
	})

	t.Run("ListDirsBeforeFilesAlphabetical", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/listdir/b.txt", []byte("b")))
		require.NoError(t, b.Write(ctx, "/listdir/a.txt", []byte("a")))
		require.NoError(t, b.Write(ctx, "/listdir/sub/nested.txt", []byte("nested")))

		entries, err := b.List(ctx, "/listdir")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.True(t, entries[0].IsDir)
		assert.Equal(t, "sub", entries[0].Name)
		assert.False(t, entries[1].IsDir)
		assert.Equal(t, "a.txt", entries[1].Name)
		assert.False(t, entries[2].IsDir)
		assert.Equal(t, "b.txt", entries[2].Name)
	})

	t.Run("ExistsAndStat", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/statme/file1.txt", []byte("content1")))

		exists, err := b.Exists(ctx, "/statme/file1.txt")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = b.Exists(ctx, "/statme/absent.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		st, err := b.Stat(ctx, "/statme/file1.txt")
		require.NoError(t, err)
		assert.Equal(t, "file1.txt", st.Name)
		assert.False(t, st.IsDir)
		require.True(t, st.HasSize)
		assert.EqualValues(t, len("content1"), st.Size)
	})

	t.Run("Rename", func(t *testing.T) {
		require.NoError(t, b.Write(ctx, "/rename-src.txt", []byte("rename me")))
		require.NoError(t, b.Rename(ctx, "/rename-src.txt", "/rename-dst.txt"))

		exists, err := b.Exists(ctx, "/rename-src.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		got, err := b.Read(ctx, "/rename-dst.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("rename me"), got)
	})
}
