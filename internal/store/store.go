// Package store provides the key-value backends that hold mappings, importer
// settings and credentials.
package store

import (
	"context"
	"strings"
	"sync"
)

// Store is a string key-value store. Implementations must be safe for
// concurrent use; download importers read mappings from several goroutines.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set inserts or overwrites key.
	Set(ctx context.Context, key, value string) error
	// List returns all entries whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
	Close() error
}

// Memory is an in-memory Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterPrefix(m.values, prefix), nil
}

func (m *Memory) Close() error {
	return nil
}

func filterPrefix(values map[string]string, prefix string) map[string]string {
	result := make(map[string]string)
	for k, v := range values {
		if strings.HasPrefix(k, prefix) {
			result[k] = v
		}
	}
	return result
}
