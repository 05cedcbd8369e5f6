package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfs/openfs/internal/backend/memory"
)

func TestRouterLongestPrefixMatch(t *testing.T) {
	docs := memory.New("docs")
	nested := memory.New("nested")
	root := memory.New("root")

	r, err := New([]Mount{
		{Path: "/", Backend: root},
		{Path: "/docs", Backend: docs},
		{Path: "/docs/nested", Backend: nested},
	})
	require.NoError(t, err)

	res, err := r.Resolve("/docs/nested/a.txt")
	require.NoError(t, err)
	assert.Same(t, nested, res.Mount.Backend)
	assert.Equal(t, "a.txt", res.RelativePath)

	res, err = r.Resolve("/docs/b.txt")
	require.NoError(t, err)
	assert.Same(t, docs, res.Mount.Backend)
	assert.Equal(t, "b.txt", res.RelativePath)

	res, err = r.Resolve("/other/c.txt")
	require.NoError(t, err)
	assert.Same(t, root, res.Mount.Backend)
	assert.Equal(t, "other/c.txt", res.RelativePath)
}

func TestRouterRejectsDuplicateMountPaths(t *testing.T) {
	a := memory.New("a")
	b := memory.New("b")
	_, err := New([]Mount{
		{Path: "/docs", Backend: a},
		{Path: "/docs/", Backend: b}, // normalizes to the same path as above
	})
	assert.Error(t, err)
}

func TestRouterUnrelatedMountDoesNotChangeResolution(t *testing.T) {
	docs := memory.New("docs")
	r1, err := New([]Mount{{Path: "/docs", Backend: docs}})
	require.NoError(t, err)
	res1, err := r1.Resolve("/docs/a.txt")
	require.NoError(t, err)

	other := memory.New("other")
	r2, err := New([]Mount{
		{Path: "/docs", Backend: docs},
		{Path: "/other", Backend: other},
	})
	require.NoError(t, err)
	res2, err := r2.Resolve("/docs/a.txt")
	require.NoError(t, err)

	assert.Equal(t, res1.Mount.Path, res2.Mount.Path)
	assert.Equal(t, res1.RelativePath, res2.RelativePath)
}

func TestRouterNoMountWithoutRoot(t *testing.T) {
	docs := memory.New("docs")
	r, err := New([]Mount{{Path: "/docs", Backend: docs}})
	require.NoError(t, err)

	_, err = r.Resolve("/elsewhere/x.txt")
	require.Error(t, err)
	var noMount *ErrNoMount
	assert.ErrorAs(t, err, &noMount)
}

func TestRouterReadOnlyFlagCarried(t *testing.T) {
	ro := memory.New("ro")
	r, err := New([]Mount{{Path: "/ro", Backend: ro, ReadOnly: true}})
	require.NoError(t, err)

	res, err := r.Resolve("/ro/x.txt")
	require.NoError(t, err)
	assert.True(t, res.Mount.ReadOnly)
}
