package filestore

import (
	"context"
	"sync"

	"wsrestore/internal/restore"
)

// MemoryStore holds object sizes in memory. Use in tests and for the
// "memory" files type. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]int64
}

var _ restore.FileStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]int64)}
}

// Put records an object of the given size, replacing any previous one.
func (m *MemoryStore) Put(key string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = size
}

func (m *MemoryStore) Stats(context.Context) (restore.FileStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st restore.FileStats
	for _, size := range m.objects {
		st.Count++
		st.Bytes += size
	}
	return st, nil
}
