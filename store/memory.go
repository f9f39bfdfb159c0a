package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/stevemurr/franchise-admin/model"
)

// MemoryBackend keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

// memCollection owns its documents and the counter its ids come from.
type memCollection struct {
	docs map[int][]byte
	next int
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memCollection)}
}

// NewMemoryStore returns an in-memory store seeded with the fixture data.
func NewMemoryStore() *DocStore {
	s := newDocStore(NewMemoryBackend())
	if err := s.seed(context.Background(), model.SeedFixtures()); err != nil {
		// Fixtures use distinct ids per kind; a failure here is a bug in them.
		panic(fmt.Sprintf("seed memory store: %v", err))
	}
	return s
}

// NewEmptyMemoryStore returns an in-memory store with no records.
func NewEmptyMemoryStore() *DocStore {
	return newDocStore(NewMemoryBackend())
}

// copyBytes returns a private copy so callers never share a stored slice.
func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	return append([]byte(nil), src...)
}

func (m *MemoryBackend) collection(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[int][]byte), next: 1}
		m.collections[name] = c
	}
	return c
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) All(_ context.Context, collection string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return [][]byte{}, nil
	}
	ids := make([]int, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	result := make([][]byte, 0, len(ids))
	for _, id := range ids {
		result = append(result, copyBytes(c.docs[id]))
	}
	return result, nil
}

func (m *MemoryBackend) Get(_ context.Context, collection string, id int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}
	return copyBytes(c.docs[id]), nil
}

func (m *MemoryBackend) Create(_ context.Context, collection string, build func(id int) ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	id := c.next
	data, err := build(id)
	if err != nil {
		return nil, err
	}
	c.next++
	c.docs[id] = copyBytes(data)
	return copyBytes(data), nil
}

func (m *MemoryBackend) Insert(_ context.Context, collection string, id int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.collection(collection)
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("%s %d: %w", collection, id, model.ErrIdentityCollision)
	}
	c.docs[id] = copyBytes(data)
	if id >= c.next {
		c.next = id + 1
	}
	return nil
}

func (m *MemoryBackend) Modify(_ context.Context, collection string, id int, fn func([]byte) ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}
	current, exists := c.docs[id]
	if !exists {
		return nil, nil
	}
	next, err := fn(copyBytes(current))
	if err != nil {
		return nil, err
	}
	c.docs[id] = copyBytes(next)
	return copyBytes(next), nil
}

func (m *MemoryBackend) Delete(_ context.Context, collection string, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return false, nil
	}
	if _, exists := c.docs[id]; !exists {
		return false, nil
	}
	delete(c.docs, id)
	return true, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }
func (m *MemoryBackend) Close() error               { return nil }
