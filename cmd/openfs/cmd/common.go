package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/chunk"
	"github.com/openfs/openfs/internal/config"
	"github.com/openfs/openfs/internal/embed"
	"github.com/openfs/openfs/internal/index"
	"github.com/openfs/openfs/internal/sparse"
	"github.com/openfs/openfs/internal/vectorstore"
	"github.com/openfs/openfs/internal/vfsfacade"
)

// loadConfig opens and parses the document named by the --config flag.
func loadConfig() (*config.Document, error) {
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", configPath, err)
	}
	defer f.Close()
	return config.Load(f)
}

// openVFS loads the configuration and builds the full VFS it describes.
func openVFS(ctx context.Context) (*config.Document, *vfsfacade.VFS, error) {
	doc, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	v, err := vfsfacade.BuildVFS(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("build vfs: %w", err)
	}
	return doc, v, nil
}

// mountByPrefix finds the configured mount whose path is a prefix of p,
// the way the router itself resolves dispatch, so a caller can recover
// the mount's indexing/collection settings from a namespace path.
func mountByPrefix(doc *config.Document, p string) (config.MountConfig, bool) {
	best := config.MountConfig{}
	found := false
	for _, m := range doc.Mounts {
		if m.Path == "/" || p == m.Path || len(p) > len(m.Path) && p[:len(m.Path)+1] == m.Path+"/" {
			if !found || len(m.Path) > len(best.Path) {
				best = m
				found = true
			}
		}
	}
	return best, found
}

// backendForMount returns the already-built Backend for the mount at
// mountPath, alongside path reduced to the mount-relative form that
// Backend expects.
func backendForMount(v *vfsfacade.VFS, mountPath, path string) (backend.Backend, string, bool) {
	for _, m := range v.Mounts() {
		if m.Path == mountPath {
			return m.Backend, relativeTo(mountPath, path), true
		}
	}
	return nil, "", false
}

func relativeTo(mountPath, path string) string {
	if mountPath == "/" {
		if len(path) > 0 && path[0] == '/' {
			return path[1:]
		}
		return path
	}
	rel := path[len(mountPath):]
	if len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	return rel
}

func buildChunker(cc config.ChunkConfig) chunk.Chunker {
	opt := chunk.Options{
		ChunkSize:    cc.ChunkSize,
		ChunkOverlap: cc.ChunkOverlap,
		MinChunkSize: cc.MinChunkSize,
	}
	switch cc.Strategy {
	case "fixed":
		return chunk.Fixed{Opt: opt}
	case "semantic":
		return chunk.Semantic{Opt: opt}
	default:
		return chunk.Recursive{Opt: opt}
	}
}

func buildEmbedder(ec config.EmbeddingConfig) (embed.Embedder, error) {
	provider := ec.Provider
	if provider == "" {
		provider = "hashing"
	}
	return embed.New(provider, ec.Dimension)
}

func buildStore(vc config.VectorStoreConfig) vectorstore.Store {
	if vc.Type == "chroma" && vc.Endpoint != "" {
		return vectorstore.NewChroma(vc.Endpoint)
	}
	return vectorstore.NewMemory()
}

// pipelineFor assembles the indexing pipeline for a mount, wiring the
// document's global chunk/embedding/vector-store configuration the way
// BuildVFS wires sync configuration per mount.
func pipelineFor(doc *config.Document, mc config.MountConfig) (*index.Pipeline, error) {
	embedder, err := buildEmbedder(doc.Defaults.Embedding)
	if err != nil {
		return nil, err
	}
	batch := doc.Defaults.Embedding.BatchSize
	return &index.Pipeline{
		Extractor:  index.PlainTextExtractor{},
		Chunker:    buildChunker(doc.Defaults.Chunk),
		Embedder:   embedder,
		Sparse:     sparse.New(),
		Store:      buildStore(doc.VectorStore),
		Collection: mc.Collection,
		BatchSize:  batch,
	}, nil
}

// searcherFor assembles a Searcher sharing the same store/embedder
// construction as pipelineFor, so search results line up with whatever
// the mount was indexed with.
func searcherFor(doc *config.Document, mc config.MountConfig) (*index.Searcher, error) {
	embedder, err := buildEmbedder(doc.Defaults.Embedding)
	if err != nil {
		return nil, err
	}
	return &index.Searcher{
		Store:      buildStore(doc.VectorStore),
		Sparse:     sparse.New(),
		Embedder:   embedder,
		Collection: mc.Collection,
	}, nil
}
