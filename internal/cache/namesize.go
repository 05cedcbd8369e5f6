package cache

import "sync"

// NameSizeMap is the auxiliary name->size index spec §4.3 asks for,
// supporting Entries() for listing merges (CachedBackend.List augments an
// inner listing with cached sizes keyed by name).
type NameSizeMap struct {
	mu   sync.RWMutex
	data map[string]int64
}

// NewNameSizeMap returns an empty map.
func NewNameSizeMap() *NameSizeMap {
	return &NameSizeMap{data: make(map[string]int64)}
}

// Set records the size for name.
func (m *NameSizeMap) Set(name string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = size
}

// Delete forgets name.
func (m *NameSizeMap) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
}

// Get returns the size for name and whether it was present.
func (m *NameSizeMap) Get(name string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	size, ok := m.data[name]
	return size, ok
}

// Entries returns a snapshot of the name->size map.
func (m *NameSizeMap) Entries() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}
