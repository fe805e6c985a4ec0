package testutil

import "wsrestore/internal/filestore"

// NewTestFileStore creates an in-memory file store holding objects of the
// given sizes.
func NewTestFileStore(sizes ...int64) *filestore.MemoryStore {
	m := filestore.NewMemoryStore()
	for i, size := range sizes {
		m.Put(string(rune('a'+i)), size)
	}
	return m
}
