package vfsfacade

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfs/openfs/internal/config"
)

func TestBuildVFSRoutesToMount(t *testing.T) {
	yamlDoc := `
backends:
  docs:
    type: memory
  scratch:
    type: memory
mounts:
  - path: /docs
    backend: docs
    mode: local
  - path: /scratch
    backend: scratch
    mode: local_indexed
`
	doc, err := config.Load(strings.NewReader(yamlDoc))
	require.NoError(t, err)

	vfs, err := BuildVFS(context.Background(), doc)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, vfs.Write(ctx, "/docs/a.txt", []byte("hello")))
	data, err := vfs.Read(ctx, "/docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	exists, err := vfs.Exists(ctx, "/scratch/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVFSRejectsCrossMountRename(t *testing.T) {
	yamlDoc := `
backends:
  a:
    type: memory
  b:
    type: memory
mounts:
  - path: /a
    backend: a
    mode: local
  - path: /b
    backend: b
    mode: local
`
	doc, err := config.Load(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	vfs, err := BuildVFS(context.Background(), doc)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, vfs.Write(ctx, "/a/f.txt", []byte("x")))
	err = vfs.Rename(ctx, "/a/f.txt", "/b/f.txt")
	var crossErr *ErrCrossMountRename
	assert.ErrorAs(t, err, &crossErr)
}

func TestVFSEnforcesReadOnlyMount(t *testing.T) {
	yamlDoc := `
backends:
  ro:
    type: memory
mounts:
  - path: /ro
    backend: ro
    mode: local
    read_only: true
`
	doc, err := config.Load(strings.NewReader(yamlDoc))
	require.NoError(t, err)
	vfs, err := BuildVFS(context.Background(), doc)
	require.NoError(t, err)

	err = vfs.Write(context.Background(), "/ro/f.txt", []byte("x"))
	var roErr *ErrReadOnly
	assert.ErrorAs(t, err, &roErr)
}
