package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/chunk"
	"github.com/openfs/openfs/internal/embed"
	"github.com/openfs/openfs/internal/sparse"
	"github.com/openfs/openfs/internal/vectorstore"
)

// Extractor pulls plain text out of raw file bytes, or refuses (a soft
// skip, not an error) when it can't handle the MIME type.
type Extractor interface {
	Extract(path string, data []byte) (text string, ok bool)
}

// PlainTextExtractor accepts any content that decodes as valid UTF-8 and
// refuses anything else (a crude binary sniff), matching the default
// extractor's permissive stance for a text-first VFS.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(path string, data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// Result is returned by IndexFile.
type Result struct {
	Path          string
	ChunksCreated int
	DurationMs    int64
}

// Pipeline orchestrates extract -> chunk -> embed-in-batches ->
// sparse-encode -> upsert, per spec §4.7.
type Pipeline struct {
	Extractor  Extractor
	Chunker    chunk.Chunker
	Embedder   embed.Embedder
	Sparse     *sparse.Encoder // nil disables sparse encoding
	Store      vectorstore.Store
	Collection string
	BatchSize  int

	// Concurrency bounds how many files IndexDirectory indexes at once.
	// Defaults to 4 when unset.
	Concurrency int
}

// IndexFile extracts, chunks, embeds, optionally sparse-encodes, and
// upserts every chunk of data read from path. A refused extraction is a
// soft skip: it returns a Result with only Path set and a nil error.
func (p *Pipeline) IndexFile(ctx context.Context, path string, data []byte) (Result, error) {
	start := time.Now()
	text, ok := p.Extractor.Extract(path, data)
	if !ok {
		return Result{Path: path}, nil
	}

	chunks := p.Chunker.Chunk(text, path)
	if len(chunks) == 0 {
		return Result{Path: path}, nil
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := p.Embedder.Embed(ctx, texts)
		if err != nil {
			return Result{}, fmt.Errorf("embedding %s: %w", path, err)
		}

		for i, c := range batch {
			rec := vectorstore.Record{
				ID:    c.ID(),
				Text:  c.Content,
				Dense: vectors[i],
				Metadata: map[string]string{
					"source_path":  c.SourcePath,
					"start_line":   strconv.Itoa(c.StartLine),
					"end_line":     strconv.Itoa(c.EndLine),
					"chunk_index":  strconv.Itoa(c.ChunkIndex),
					"total_chunks": strconv.Itoa(c.TotalChunks),
				},
			}
			if p.Sparse != nil {
				p.Sparse.UpdateIDF(c.Content)
				rec.Sparse = p.Sparse.Encode(c.Content)
			}
			records = append(records, rec)
		}
	}

	if err := p.Store.Upsert(ctx, p.Collection, records); err != nil {
		return Result{}, fmt.Errorf("upserting %s: %w", path, err)
	}

	return Result{
		Path:          path,
		ChunksCreated: len(chunks),
		DurationMs:    time.Since(start).Milliseconds(),
	}, nil
}

// DeleteFile removes every chunk belonging to path from the vector store.
func (p *Pipeline) DeleteFile(ctx context.Context, path string) error {
	return p.Store.DeleteWhere(ctx, p.Collection, "source_path", path)
}

// BulkResult is the outcome of indexing a directory tree.
type BulkResult struct {
	Indexed int
	Skipped int
	Errors  map[string]error
}

// IndexDirectory walks dir via b (optionally recursively), indexing every
// readable file and accumulating per-path errors without aborting. Files at
// each directory level are indexed concurrently, bounded by Concurrency,
// the way rclone's sync/operations package fans work out across an
// errgroup (e.g. backend/combine's multido) rather than serializing it.
func (p *Pipeline) IndexDirectory(ctx context.Context, b backend.Backend, dir string, recursive bool) (BulkResult, error) {
	entries, err := b.List(ctx, dir)
	if err != nil {
		return BulkResult{Errors: make(map[string]error)}, err
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var mu sync.Mutex
	res := BulkResult{Errors: make(map[string]error)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, e := range entries {
		e := e
		full := joinPath(dir, e.Name)
		if e.IsDir {
			if !recursive {
				continue
			}
			g.Go(func() error {
				sub, err := p.IndexDirectory(gctx, b, full, recursive)
				mu.Lock()
				defer mu.Unlock()
				res.Indexed += sub.Indexed
				res.Skipped += sub.Skipped
				for k, v := range sub.Errors {
					res.Errors[k] = v
				}
				if err != nil {
					res.Errors[full] = err
				}
				return nil
			})
			continue
		}
		g.Go(func() error {
			data, err := b.Read(gctx, full)
			if err != nil {
				mu.Lock()
				res.Errors[full] = err
				mu.Unlock()
				return nil
			}
			result, err := p.IndexFile(gctx, full, data)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[full] = err
				return nil
			}
			if result.ChunksCreated == 0 {
				res.Skipped++
			} else {
				res.Indexed++
			}
			return nil
		})
	}
	_ = g.Wait() // per-path errors are accumulated in res.Errors, never aborted
	return res, nil
}

func joinPath(dir, name string) string {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
