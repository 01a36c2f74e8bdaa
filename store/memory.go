package store

import (
	"context"
	"sync"
)

// Memory is an in-process KV implementation. It is the default backing store
// for single-instance deployments and tests.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// Compile-time assertion: *Memory implements KV.
var _ KV = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// compound joins namespace and key. Namespaces never contain the separator.
func compound(namespace, key string) string {
	return namespace + ":" + key
}

// Get implements KV.
func (m *Memory) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[compound(namespace, key)]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, true, nil
}

// Put implements KV.
func (m *Memory) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[compound(namespace, key)] = stored

	return nil
}

// PutIfAbsent implements KV. The mutex makes the check-and-insert atomic.
func (m *Memory) PutIfAbsent(ctx context.Context, namespace, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	k := compound(namespace, key)
	if _, exists := m.values[k]; exists {
		return false, nil
	}

	m.values[k] = stored

	return true, nil
}
