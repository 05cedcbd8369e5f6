package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestQueue(t *testing.T) *WorkQueue {
	t.Helper()
	q, err := OpenWorkQueue(WorkQueueOptions{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// TestWorkQueueUpsertSupersedesPending checks that enqueuing Changed then
// Deleted for the same path with zero debounce collapses to a single row
// whose event_type is the latest one, Deleted.
func TestWorkQueueUpsertSupersedesPending(t *testing.T) {
	q := openTestQueue(t)

	require.NoError(t, q.Enqueue("/a.txt", EventChanged))
	require.NoError(t, q.Enqueue("/a.txt", EventDeleted))

	items, err := q.FetchReady(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/a.txt", items[0].Path)
	assert.Equal(t, EventDeleted, items[0].EventType)
	assert.Equal(t, 0, items[0].Attempts)
}

func TestWorkQueueFetchReadyMarksProcessing(t *testing.T) {
	q := openTestQueue(t)
	require.NoError(t, q.Enqueue("/a.txt", EventChanged))

	items, err := q.FetchReady(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, StatusProcessing, items[0].Status)

	// A second fetch must not reclaim the same row while it's Processing.
	items2, err := q.FetchReady(10)
	require.NoError(t, err)
	assert.Empty(t, items2)
}

func TestWorkQueueCompleteRemovesRow(t *testing.T) {
	q := openTestQueue(t)
	require.NoError(t, q.Enqueue("/a.txt", EventChanged))
	items, err := q.FetchReady(10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, q.Complete(items[0].ID))

	items2, err := q.FetchReady(10)
	require.NoError(t, err)
	assert.Empty(t, items2)
}

func TestWorkQueueFailDeadLettersAfterMaxRetries(t *testing.T) {
	q, err := OpenWorkQueue(WorkQueueOptions{Path: ":memory:", MaxRetries: 2, BaseBackoff: time.Nanosecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Enqueue("/flaky.txt", EventChanged))
	items, err := q.FetchReady(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	require.NoError(t, q.Fail(id, assertErr("boom")))
	items, err = q.FetchReady(10)
	require.NoError(t, err)
	require.Len(t, items, 1, "below max retries, row should be pending again")

	require.NoError(t, q.Fail(id, assertErr("boom again")))
	items, err = q.FetchReady(10)
	require.NoError(t, err)
	assert.Empty(t, items, "row should have moved to dead_letter")
}

func TestWorkQueueRecoverStuckResetsProcessing(t *testing.T) {
	q := openTestQueue(t)
	require.NoError(t, q.Enqueue("/stuck.txt", EventChanged))
	_, err := q.FetchReady(10) // marks Processing, simulating a crash mid-flush
	require.NoError(t, err)

	require.NoError(t, q.RecoverStuck())

	items, err := q.FetchReady(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/stuck.txt", items[0].Path)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
