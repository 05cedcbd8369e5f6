package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSizeMapSetGetDelete(t *testing.T) {
	m := NewNameSizeMap()
	m.Set("a.txt", 42)

	size, ok := m.Get("a.txt")
	assert.True(t, ok)
	assert.Equal(t, int64(42), size)

	m.Delete("a.txt")
	_, ok = m.Get("a.txt")
	assert.False(t, ok)
}

func TestNameSizeMapEntriesSnapshot(t *testing.T) {
	m := NewNameSizeMap()
	m.Set("a.txt", 1)
	m.Set("b.txt", 2)

	snap := m.Entries()
	assert.Equal(t, map[string]int64{"a.txt": 1, "b.txt": 2}, snap)

	m.Set("c.txt", 3)
	assert.Len(t, snap, 2, "snapshot must not observe later mutations")
}
