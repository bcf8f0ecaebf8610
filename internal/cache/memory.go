package cache

import (
	"sync"

	"djedigo/pkg/uri"
)

// MemoryStore is an unbounded in-memory node store.
// There is no eviction or expiry; Reset is the only way to drop everything.
type MemoryStore struct {
	nodes map[uri.Identifier]string
	mu    sync.RWMutex
}

// NewMemoryStore creates a new empty node store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[uri.Identifier]string),
	}
}

// Get retrieves a node value
func (ms *MemoryStore) Get(id uri.Identifier) (string, bool) {
	ms.mu.RLock()
	value, ok := ms.nodes[id]
	ms.mu.RUnlock()
	return value, ok
}

// Set stores a node value
func (ms *MemoryStore) Set(id uri.Identifier, value string) {
	ms.mu.Lock()
	ms.nodes[id] = value
	ms.mu.Unlock()
}

// SetMany stores several node values under one lock
func (ms *MemoryStore) SetMany(nodes map[uri.Identifier]string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for id, value := range nodes {
		ms.nodes[id] = value
	}
}

// Has reports whether a node is stored
func (ms *MemoryStore) Has(id uri.Identifier) bool {
	_, ok := ms.Get(id)
	return ok
}

// Delete removes a node
func (ms *MemoryStore) Delete(id uri.Identifier) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.nodes[id]; !ok {
		return false
	}
	delete(ms.nodes, id)
	return true
}

// Len returns the number of stored nodes
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.nodes)
}

// Reset removes all nodes
func (ms *MemoryStore) Reset() {
	ms.mu.Lock()
	ms.nodes = make(map[uri.Identifier]string)
	ms.mu.Unlock()
}
