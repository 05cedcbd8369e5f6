package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/openfs/openfs/internal/embed"
)

// Memory is a brute-force, in-process Store: every Query scans the full
// collection. It exists for tests and for small deployments that don't
// want to run an external vector database.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Record)}
}

func (m *Memory) coll(name string) map[string]Record {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]Record)
		m.collections[name] = c
	}
	return c
}

func (m *Memory) Upsert(ctx context.Context, collection string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.coll(collection)
	for _, r := range records {
		c[r.ID] = r
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, vector embed.Vector, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.collections[collection]
	results := make([]SearchResult, 0, len(c))
	for _, r := range c {
		score := embed.CosineSimilarity(vector, r.Dense)
		results = append(results, SearchResult{
			ID: r.ID, Text: r.Text, Metadata: r.Metadata,
			DenseScore: score, Score: score,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *Memory) DeleteWhere(ctx context.Context, collection string, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.coll(collection)
	for id, r := range c {
		if r.Metadata[key] == value {
			delete(c, id)
		}
	}
	return nil
}

var _ Store = (*Memory)(nil)
