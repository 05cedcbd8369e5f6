package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfs/openfs/internal/embed"
)

func TestMemoryUpsertAndQuery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, "docs", []Record{
		{ID: "a#chunk_0", Text: "alpha", Dense: embed.Vector{1, 0, 0}, Metadata: map[string]string{"source_path": "a"}},
		{ID: "b#chunk_0", Text: "beta", Dense: embed.Vector{0, 1, 0}, Metadata: map[string]string{"source_path": "b"}},
	}))

	results, err := m.Query(ctx, "docs", embed.Vector{1, 0, 0}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a#chunk_0", results[0].ID)
}

func TestMemoryDeleteWhere(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Upsert(ctx, "docs", []Record{
		{ID: "a#chunk_0", Dense: embed.Vector{1}, Metadata: map[string]string{"source_path": "a"}},
		{ID: "b#chunk_0", Dense: embed.Vector{1}, Metadata: map[string]string{"source_path": "b"}},
	}))
	require.NoError(t, m.DeleteWhere(ctx, "docs", "source_path", "a"))

	results, err := m.Query(ctx, "docs", embed.Vector{1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b#chunk_0", results[0].ID)
}

func TestMemoryQueryLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Upsert(ctx, "c", []Record{{ID: string(rune('a' + i)), Dense: embed.Vector{float32(i)}}}))
	}
	results, err := m.Query(ctx, "c", embed.Vector{1}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
