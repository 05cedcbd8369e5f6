package localfs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	obackend "github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/backend/backendtest"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New("fs", t.TempDir())
	require.NoError(t, err)
	return b
}

func TestLocalfsBackendConformance(t *testing.T) {
	backendtest.RunConformance(t, newTestBackend(t))
}

// TestWriteReadRoundTrip checks a basic write/read/stat round trip.
func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	require.NoError(t, b.Write(ctx, "/test.txt", []byte("hello world")))
	got, err := b.Read(ctx, "/test.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	st, err := b.Stat(ctx, "/test.txt")
	require.NoError(t, err)
	assert.EqualValues(t, 11, st.Size)
	assert.False(t, st.IsDir)
}

// TestPathTraversalRejected checks that a ".." component never lets a
// write land outside the canonicalized root.
func TestPathTraversalRejected(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	b, err := New("fs", root)
	require.NoError(t, err)

	err = b.Write(ctx, "/../escape.txt", []byte("nope"))
	require.Error(t, err)
	assert.True(t, obackend.IsKind(err, obackend.KindPathTraversal))

	_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr), "no file should have been created outside root")
}

// TestSymlinkEscapeRejected checks that a symlinked directory whose
// target lies outside root does not let a write escape through it.
func TestSymlinkEscapeRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink escape scenario targets unix semantics")
	}
	ctx := context.Background()
	root := t.TempDir()
	outside := t.TempDir()
	b, err := New("fs", root)
	require.NoError(t, err)

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	err = b.Write(ctx, "/escape/evil.txt", []byte("evil"))
	require.Error(t, err)
	assert.True(t, obackend.IsKind(err, obackend.KindPathTraversal))

	_, statErr := os.Stat(filepath.Join(outside, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr), "no file should have been created outside root")
}

// TestDanglingSymlinkBasenameEscapeRejected covers the case where the
// path's own basename is a dangling symlink pointing outside root: a
// target that does not yet exist must not be treated as "safe because
// nothing exists there yet" — Append (and any other operation) must
// refuse it rather than create the target through the link.
func TestDanglingSymlinkBasenameEscapeRejected(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink escape scenario targets unix semantics")
	}
	ctx := context.Background()
	root := t.TempDir()
	outside := t.TempDir()
	b, err := New("fs", root)
	require.NoError(t, err)

	target := filepath.Join(outside, "nonexistent.txt")
	require.NoError(t, os.Symlink(target, filepath.Join(root, "evil.txt")))

	err = b.Append(ctx, "/evil.txt", []byte("payload"))
	require.Error(t, err)
	assert.True(t, obackend.IsKind(err, obackend.KindPathTraversal))

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "no file should have been created through the dangling symlink")

	err = b.Write(ctx, "/evil.txt", []byte("payload"))
	require.Error(t, err)
	assert.True(t, obackend.IsKind(err, obackend.KindPathTraversal))
}
