package stationconfig

import (
	"context"
	"sync"
)

// MemoryBackend keeps the document in memory. Used in tests and for
// ephemeral runs.
type MemoryBackend struct {
	mu     sync.RWMutex
	doc    *Document
	writes int
}

// NewMemoryBackend creates a backend holding doc, which may be nil.
func NewMemoryBackend(doc *Document) *MemoryBackend {
	b := &MemoryBackend{}
	if doc != nil {
		b.doc = doc.Clone()
	}
	return b
}

// Read returns a copy of the stored document.
func (b *MemoryBackend) Read(_ context.Context) (*Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.doc == nil {
		return nil, nil
	}
	return b.doc.Clone(), nil
}

// Write replaces the stored document.
func (b *MemoryBackend) Write(_ context.Context, doc *Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc = doc.Clone()
	b.writes++
	return nil
}

// Writes returns how many times Write was called.
func (b *MemoryBackend) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

var _ Backend = (*MemoryBackend)(nil)
