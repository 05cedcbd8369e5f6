package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetPutRoundTrip(t *testing.T) {
	c := New(WithMaxEntries(10))
	ok := c.Put("a", []byte("hello"))
	require.True(t, ok)

	data, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
}

func TestCacheMissIncrementsStats(t *testing.T) {
	c := New()
	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestCacheEvictsLRUOnMaxEntries(t *testing.T) {
	c := New(WithMaxEntries(2))
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	c.Get("a") // touch a so it is more recently used than b
	c.Put("c", []byte("3"))

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted as the least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCacheEvictsOnMaxBytes(t *testing.T) {
	c := New(WithMaxBytes(10))
	c.Put("a", []byte("12345"))
	c.Put("b", []byte("67890"))
	ok := c.Put("c", []byte("abcde"))
	require.True(t, ok)

	_, ok = c.Get("a")
	assert.False(t, ok, "a should be evicted to stay within the byte cap")
	assert.LessOrEqual(t, c.Stats().Size, int64(10))
}

func TestCachePutRejectsOversizedEntry(t *testing.T) {
	c := New(WithMaxBytes(4))
	ok := c.Put("a", []byte("12345"))
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheTTLExpiresOnGet(t *testing.T) {
	c := New(WithTTL(time.Millisecond))
	c.Put("a", []byte("1"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Expirations)
}

func TestCachePruneExpiredRemovesStaleEntries(t *testing.T) {
	c := New(WithTTL(time.Millisecond))
	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	time.Sleep(5 * time.Millisecond)

	removed := c.PruneExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheRemoveAndContains(t *testing.T) {
	c := New()
	c.Put("a", []byte("1"))
	assert.True(t, c.Contains("a"))
	c.Remove("a")
	assert.False(t, c.Contains("a"))
}

func TestCacheClearResetsEntriesNotCounters(t *testing.T) {
	c := New()
	c.Put("a", []byte("1"))
	c.Get("a")
	c.Clear()
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, uint64(1), c.Stats().Hits)
}
