// Package store persists datasets and their derived artifacts as
// namespaced blobs, plus a versioned export format for moving datasets
// between installations.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no blob exists under the given key.
var ErrNotFound = errors.New("blob not found")

// Store is a namespaced blob store. Namespaces group related artifacts
// (one per dataset); keys identify artifacts within a namespace.
type Store interface {
	Put(ctx context.Context, namespace, key string, data []byte) error
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) ([]string, error)
	Close() error
}

// MemoryStore keeps blobs in process memory. Used in tests and for
// ephemeral datasets.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, namespace, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.blobs[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.blobs[namespace] = ns
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	ns[key] = cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.blobs[namespace]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := ns[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.blobs[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, namespace string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.blobs[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
