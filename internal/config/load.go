package config

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses a configuration document from r and validates it, returning
// the effective document with Defaults merged into every mount (spec §6's
// "Effective config" computation).
func Load(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	doc.inferEffectiveFields()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.applyDefaults()
	return &doc, nil
}

// inferEffectiveFields fills in the mount fields spec §6's "Effective
// config" computation derives rather than requires the author to spell
// out: a lone backend is inferred for mounts that omit Backend, and a
// mount's Collection defaults to its path's basename.
func (d *Document) inferEffectiveFields() {
	var soleBackend string
	if len(d.Backends) == 1 {
		for name := range d.Backends {
			soleBackend = name
		}
	}
	for i := range d.Mounts {
		m := &d.Mounts[i]
		m.Path = normalizeMountPath(m.Path)
		if m.Backend == "" && soleBackend != "" {
			m.Backend = soleBackend
		}
		if m.Collection == "" {
			m.Collection = basename(m.Path)
		}
	}
}

func normalizeMountPath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	return strings.TrimSuffix(p, "/")
}

func basename(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// Validate checks the structural invariants spec §6 requires: every mount
// names a declared backend, mount paths are non-empty and absolute-style,
// and no two mounts share an identical path.
func (d *Document) Validate() error {
	if len(d.Mounts) == 0 {
		return fmt.Errorf("config: at least one mount is required")
	}
	seen := make(map[string]bool, len(d.Mounts))
	for _, m := range d.Mounts {
		if m.Path == "" {
			return fmt.Errorf("config: mount with empty path")
		}
		if !strings.HasPrefix(m.Path, "/") {
			return fmt.Errorf("config: mount path %q must start with /", m.Path)
		}
		if seen[m.Path] {
			return fmt.Errorf("config: duplicate mount path %q", m.Path)
		}
		seen[m.Path] = true
		if m.Backend == "" {
			return fmt.Errorf("config: mount %q has no backend", m.Path)
		}
		if _, ok := d.Backends[m.Backend]; !ok {
			return fmt.Errorf("config: mount %q references undeclared backend %q", m.Path, m.Backend)
		}
	}
	for name, bc := range d.Backends {
		if bc.Type == "" {
			return fmt.Errorf("config: backend %q has no type", name)
		}
	}
	return nil
}

// applyDefaults fills every mount's zero-valued Sync and Watch fields from
// Defaults. Chunk and Embedding defaults are not copied into mounts; callers
// read them from Defaults directly. A zero value counts as unset, so an
// explicit 0 or false in a mount is replaced by the default.
func (d *Document) applyDefaults() {
	for i := range d.Mounts {
		m := &d.Mounts[i]
		if m.Sync.FlushInterval == 0 {
			m.Sync.FlushInterval = d.Defaults.Sync.FlushInterval
		}
		if m.Sync.MaxRetries == 0 {
			m.Sync.MaxRetries = d.Defaults.Sync.MaxRetries
		}
		if m.Sync.BaseBackoff == 0 {
			m.Sync.BaseBackoff = d.Defaults.Sync.BaseBackoff
		}
		if m.Sync.MaxPending == 0 {
			m.Sync.MaxPending = d.Defaults.Sync.MaxPending
		}
		if m.Sync.CacheEntries == 0 {
			m.Sync.CacheEntries = d.Defaults.Sync.CacheEntries
		}
		if m.Sync.CacheBytes == 0 {
			m.Sync.CacheBytes = d.Defaults.Sync.CacheBytes
		}
		if m.Sync.CacheTTL == 0 {
			m.Sync.CacheTTL = d.Defaults.Sync.CacheTTL
		}
		if !m.Watch.Enabled {
			m.Watch.Enabled = d.Defaults.Watch.Enabled
		}
		if m.Watch.Debounce == 0 {
			m.Watch.Debounce = d.Defaults.Watch.Debounce
		}
	}
}

// BackendFor returns the named backend's configuration.
func (d *Document) BackendFor(name string) (BackendConfig, bool) {
	bc, ok := d.Backends[name]
	return bc, ok
}
