package blockstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation for testing.
// It keeps blocks and metadata in maps without any filesystem dependency.
// Thread-safe for concurrent reads and writes.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks map[uint64][]byte
	meta   map[string][]byte
}

// NewMemoryStore creates a new in-memory block store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blocks: make(map[uint64][]byte),
		meta:   make(map[string][]byte),
	}
}

// ReadBlock returns a copy of the block stored under id.
func (m *MemoryStore) ReadBlock(_ context.Context, id uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blocks[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external mutation
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// WriteBlock stores a copy of buf under id.
func (m *MemoryStore) WriteBlock(_ context.Context, id uint64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(buf))
	copy(copied, buf)
	m.blocks[id] = copied
	return nil
}

// AllocateBlock creates a zeroed block of the given size under id.
func (m *MemoryStore) AllocateBlock(_ context.Context, id uint64, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[id] = make([]byte, size)
	return nil
}

// DeleteBlock removes the block stored under id.
func (m *MemoryStore) DeleteBlock(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[id]; !ok {
		return ErrNotFound
	}
	delete(m.blocks, id)
	return nil
}

// CountBlocks returns the number of stored blocks.
func (m *MemoryStore) CountBlocks(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.blocks)), nil
}

// RandomBlockID returns the id of a randomly chosen block.
// Go's map iteration order is randomized, so the first key is an
// approximately uniform sample.
func (m *MemoryStore) RandomBlockID(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id := range m.blocks {
		return id, nil
	}
	return 0, ErrNotFound
}

// GetMeta returns a copy of the metadata value stored under key.
func (m *MemoryStore) GetMeta(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.meta[key]
	if !ok {
		return nil, ErrNotFound
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// PutMeta stores a copy of value under key.
func (m *MemoryStore) PutMeta(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	m.meta[key] = copied
	return nil
}
