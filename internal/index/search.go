package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/openfs/openfs/internal/embed"
	"github.com/openfs/openfs/internal/sparse"
	"github.com/openfs/openfs/internal/vectorstore"
)

// SearchMode selects which sub-scores a Search call combines.
type SearchMode int

const (
	ModeDense SearchMode = iota
	ModeSparse
	ModeHybrid
)

const (
	defaultWeightDense  = 0.7
	defaultWeightSparse = 0.3
)

// SearchOptions configures one Search call.
type SearchOptions struct {
	Mode        SearchMode
	Limit       int
	MinScore    float64
	WeightDense float64 // defaults to 0.7 when 0
	WeightSparse float64 // defaults to 0.3 when 0
}

// Searcher runs dense, sparse, or hybrid queries over a vector store and
// a BM25 encoder. Sparse scores are brute-force dot products against the
// candidates a store Query returns: in hybrid mode the dense query's
// candidates, in pure sparse mode the candidates of a nil-vector query.
// Both pools are capped by largeCandidatePool; records outside the pool
// are not scored.
type Searcher struct {
	Store      vectorstore.Store
	Sparse     *sparse.Encoder
	Embedder   embed.Embedder
	Collection string
}

// Search runs query through opts.Mode. Hybrid falls back to sparse mode
// when no embedder or store is configured; sparse mode still needs a store
// to enumerate candidates, so without a store the call returns an error.
func (s *Searcher) Search(ctx context.Context, query string, opts SearchOptions) ([]vectorstore.SearchResult, error) {
	wDense := opts.WeightDense
	if wDense == 0 {
		wDense = defaultWeightDense
	}
	wSparse := opts.WeightSparse
	if wSparse == 0 {
		wSparse = defaultWeightSparse
	}

	mode := opts.Mode
	if mode == ModeHybrid && (s.Store == nil || s.Embedder == nil) {
		mode = ModeSparse
	}

	switch mode {
	case ModeDense:
		return s.searchDense(ctx, query, opts)
	case ModeSparse:
		return s.searchSparse(ctx, query, opts)
	default:
		return s.searchHybrid(ctx, query, opts, wDense, wSparse)
	}
}

func (s *Searcher) searchDense(ctx context.Context, query string, opts SearchOptions) ([]vectorstore.SearchResult, error) {
	if s.Store == nil || s.Embedder == nil {
		return nil, fmt.Errorf("dense search requires a vector store and embedder")
	}
	vectors, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	raw, err := s.Store.Query(ctx, s.Collection, vectors[0], limitOrDefault(opts.Limit))
	if err != nil {
		return nil, err
	}
	return filterAndSort(raw, opts.MinScore, opts.Limit), nil
}

// searchSparse scores the candidates of a nil-vector store Query, capped
// at largeCandidatePool(opts.Limit), against the BM25 query encoding.
// Which records fill that pool is up to the store.
func (s *Searcher) searchSparse(ctx context.Context, query string, opts SearchOptions) ([]vectorstore.SearchResult, error) {
	if s.Sparse == nil {
		return nil, fmt.Errorf("sparse search requires a populated BM25 encoder")
	}
	if s.Store == nil {
		return nil, fmt.Errorf("sparse search requires a vector store to enumerate candidates")
	}
	queryPostings := s.Sparse.EncodeQuery(query)

	candidates, err := s.Store.Query(ctx, s.Collection, nil, largeCandidatePool(opts.Limit))
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		docPostings := s.Sparse.Encode(candidates[i].Text)
		score := sparse.DotProduct(queryPostings, docPostings)
		candidates[i].SparseScore = score
		candidates[i].Score = score
		candidates[i].DenseScore = 0
	}
	return filterAndSort(candidates, opts.MinScore, opts.Limit), nil
}

func (s *Searcher) searchHybrid(ctx context.Context, query string, opts SearchOptions, wDense, wSparse float64) ([]vectorstore.SearchResult, error) {
	vectors, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	candidates, err := s.Store.Query(ctx, s.Collection, vectors[0], largeCandidatePool(opts.Limit))
	if err != nil {
		return nil, err
	}

	var queryPostings []sparse.Posting
	if s.Sparse != nil {
		queryPostings = s.Sparse.EncodeQuery(query)
	}

	for i := range candidates {
		dense := candidates[i].DenseScore
		var sp float64
		if s.Sparse != nil {
			docPostings := s.Sparse.Encode(candidates[i].Text)
			sp = sparse.DotProduct(queryPostings, docPostings)
		}
		candidates[i].DenseScore = dense
		candidates[i].SparseScore = sp
		candidates[i].Score = wDense*dense + wSparse*sp
	}
	return filterAndSort(candidates, opts.MinScore, opts.Limit), nil
}

func filterAndSort(results []vectorstore.SearchResult, minScore float64, limit int) []vectorstore.SearchResult {
	out := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]vectorstore.SearchResult{}, out...)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}

func largeCandidatePool(limit int) int {
	l := limitOrDefault(limit)
	if l < 100 {
		return 100
	}
	return l * 4
}
