package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathTrieHasPrefix(t *testing.T) {
	tr := NewPathTrie()
	tr.Insert("a/b/c.txt", 100)

	assert.True(t, tr.HasPrefix("a"))
	assert.True(t, tr.HasPrefix("a/b"))
	assert.True(t, tr.HasPrefix("a/b/c.txt"))
	assert.False(t, tr.HasPrefix("a/b/d.txt"))
	assert.False(t, tr.HasPrefix("x"))
}

func TestPathTrieListCachedChildren(t *testing.T) {
	tr := NewPathTrie()
	tr.Insert("dir/one.txt", 10)
	tr.Insert("dir/two.txt", 20)
	tr.Insert("dir/sub/three.txt", 30)

	children := tr.ListCachedChildren("dir")
	byName := make(map[string]Child, len(children))
	for _, c := range children {
		byName[c.Name] = c
	}

	require := assert.New(t)
	require.Len(children, 3)
	require.False(byName["one.txt"].IsDir)
	require.Equal(int64(10), byName["one.txt"].Size)
	require.True(byName["sub"].IsDir)
}

func TestPathTrieRemove(t *testing.T) {
	tr := NewPathTrie()
	tr.Insert("a/b.txt", 10)
	tr.Remove("a/b.txt")

	assert.False(t, tr.HasPrefix("a/b.txt"))
}
