package storage

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotConfigured indicates the backing store was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
)

// Slot is a tiny key/value store holding string documents under well-known keys.
type Slot interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// MemorySlot keeps documents in process memory.
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySlot returns an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string]string)}
}

func (m *MemorySlot) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySlot) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySlot) Close() error { return nil }

var _ Slot = (*MemorySlot)(nil)
