// Package vectorstore defines the external vector-store contract the
// indexing pipeline upserts into and queries against, plus an in-memory
// brute-force implementation and an HTTP client for a Chroma-compatible
// collection API.
package vectorstore

import (
	"context"

	"github.com/openfs/openfs/internal/embed"
	"github.com/openfs/openfs/internal/sparse"
)

// Record is one chunk's indexed representation.
type Record struct {
	ID       string
	Text     string
	Dense    embed.Vector
	Sparse   []sparse.Posting
	Metadata map[string]string
}

// SearchResult is one scored hit from a vector-store query.
type SearchResult struct {
	ID          string
	Text        string
	Metadata    map[string]string
	DenseScore  float64
	SparseScore float64
	Score       float64
}

// Store is the contract every vector-store collaborator implements:
// Upsert, dense-vector Query, and a metadata-predicate DeleteWhere used
// for the indexing pipeline's per-file delete.
type Store interface {
	Upsert(ctx context.Context, collection string, records []Record) error
	Query(ctx context.Context, collection string, vector embed.Vector, limit int) ([]SearchResult, error)
	DeleteWhere(ctx context.Context, collection string, metadataKey, metadataValue string) error
}
