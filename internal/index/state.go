// Package index implements IndexState persistence and delta/reconciliation
// against a backend's current file listing, plus the IndexingPipeline and
// the dense/sparse/hybrid search engine built on top of it.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileState is one file's last-indexed fingerprint.
type FileState struct {
	Size        int64     `json:"size"`
	Mtime       time.Time `json:"mtime,omitempty"`
	HasMtime    bool      `json:"has_mtime,omitempty"`
	Chunks      int       `json:"chunks"`
	IndexedAt   time.Time `json:"indexed_at"`
	ContentHash string    `json:"content_hash,omitempty"`
}

// State is the persisted index fingerprint document.
type State struct {
	Version     int                  `json:"version"`
	LastUpdated time.Time            `json:"last_updated"`
	Files       map[string]FileState `json:"files"`
}

const currentVersion = 1

// NewState returns an empty State at the current schema version.
func NewState() *State {
	return &State{Version: currentVersion, Files: make(map[string]FileState)}
}

// Load reads a State from path, returning a fresh empty State if the file
// does not exist (cold boot has nothing to reconcile against).
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	return &s, nil
}

// Save writes s atomically: write to a temp file in the same directory,
// then rename over path, creating parent directories as needed.
func Save(path string, s *State) error {
	s.LastUpdated = time.Now()
	if s.Version == 0 {
		s.Version = currentVersion
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-index-state-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// DefaultStateFileName is the conventional basename for a persisted State.
const DefaultStateFileName = ".openfs-index-state.json"
