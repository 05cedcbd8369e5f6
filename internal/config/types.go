package config

import "fmt"

// BackendConfig is a tagged sum selecting one concrete backend kind. Only
// the fields relevant to Type are populated; this mirrors spec §9's
// guidance to prefer a tagged sum over open inheritance at the one place
// config must select among compile-time-registered backend kinds.
type BackendConfig struct {
	Type string `yaml:"type"`

	// fs
	Root string `yaml:"root,omitempty"`

	// s3 / gcs
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`

	// sftp
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"pass,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`

	// webdav
	URL string `yaml:"url,omitempty"`

	// postgres / chroma / api — opaque passthrough for external collaborators
	DSN        string            `yaml:"dsn,omitempty"`
	Collection string            `yaml:"collection,omitempty"`
	Extra      map[string]string `yaml:"extra,omitempty"`
}

// ChunkConfig configures the chunker selected for a mount's indexing.
type ChunkConfig struct {
	Strategy     string `yaml:"strategy,omitempty"` // fixed | recursive | semantic
	ChunkSize    int    `yaml:"chunk_size,omitempty"`
	ChunkOverlap int    `yaml:"chunk_overlap,omitempty"`
	MinChunkSize int    `yaml:"min_chunk_size,omitempty"`
}

// EmbeddingConfig configures the embedder used by the indexing pipeline.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`
}

// SyncConfig configures CachedBackend/SyncEngine tunables for a mount.
type SyncConfig struct {
	FlushInterval Duration `yaml:"flush_interval,omitempty"`
	MaxRetries    int      `yaml:"max_retries,omitempty"`
	BaseBackoff   Duration `yaml:"base_backoff,omitempty"`
	MaxPending    int      `yaml:"max_pending,omitempty"`
	CacheEntries  int      `yaml:"cache_entries,omitempty"`
	CacheBytes    Bytes    `yaml:"cache_bytes,omitempty"`
	CacheTTL      Duration `yaml:"cache_ttl,omitempty"`
}

// WatchConfig configures the fsnotify-driven watch collaborator.
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled,omitempty"`
	Debounce Duration `yaml:"debounce,omitempty"`
}

// MountConfig binds a namespace path to a backend with access and
// indexing/sync options.
type MountConfig struct {
	Path       string      `yaml:"path"`
	Backend    string      `yaml:"backend,omitempty"`
	Collection string      `yaml:"collection,omitempty"`
	Mode       string      `yaml:"mode,omitempty"`
	ReadOnly   bool        `yaml:"read_only,omitempty"`
	Index      bool        `yaml:"index,omitempty"`
	Sync       SyncConfig  `yaml:"sync,omitempty"`
	Watch      WatchConfig `yaml:"watch,omitempty"`
}

// Defaults carries the chunk and embedding options used for all indexing,
// plus sync and watch options merged into every mount that doesn't specify
// its own.
type Defaults struct {
	Chunk     ChunkConfig     `yaml:"chunk,omitempty"`
	Embedding EmbeddingConfig `yaml:"embedding,omitempty"`
	Sync      SyncConfig      `yaml:"sync,omitempty"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
}

// VectorStoreConfig selects the external vector-store client the indexing
// pipeline upserts into.
type VectorStoreConfig struct {
	Type       string `yaml:"type,omitempty"` // chroma | memory
	Endpoint   string `yaml:"endpoint,omitempty"`
	Collection string `yaml:"collection,omitempty"`
}

// Document is the top-level structured configuration document spec §6
// describes.
type Document struct {
	Backends    map[string]BackendConfig `yaml:"backends"`
	Mounts      []MountConfig            `yaml:"mounts"`
	Defaults    Defaults                 `yaml:"defaults,omitempty"`
	VectorStore VectorStoreConfig        `yaml:"vector_store,omitempty"`
}

// modeToSyncMode maps a mount's configured Mode to the CachedBackend sync mode
// it implies, per spec §6's table.
var modeToSyncMode = map[string]string{
	"local":          "none",
	"local_indexed":  "none",
	"write_through":  "write_through",
	"remote_cached":  "write_through",
	"write_back":     "write_back",
	"pull_mirror":    "pull_mirror",
	"remote":         "remote", // passthrough, cache disabled
}

// ResolveSyncMode returns the CachedBackend sync-mode name for a mount
// mode, honoring the "async" escalation rule from spec §6: an
// async write-mode escalates write-through to write-back.
func ResolveSyncMode(mountMode string, asyncWrite bool) (string, error) {
	sm, ok := modeToSyncMode[mountMode]
	if !ok {
		return "", fmt.Errorf("unknown mount mode %q", mountMode)
	}
	if asyncWrite && sm == "write_through" {
		return "write_back", nil
	}
	return sm, nil
}
