package storage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/saiset-co/sai-appstate/types"
)

// MemoryBackend keeps items in process memory. Items survive Stop so a
// restarted cache over the same backend sees what was written before.
type MemoryBackend struct {
	logger types.Logger
	items  map[string]string
	writes uint64
	mu     sync.RWMutex
	state  atomic.Value
}

func NewMemoryBackend(logger types.Logger) *MemoryBackend {
	m := &MemoryBackend{
		logger: logger,
		items:  make(map[string]string),
	}

	m.state.Store(StateStopped)
	return m
}

func (m *MemoryBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.items[key]
	return value, exists, nil
}

func (m *MemoryBackend) SetItem(_ context.Context, key, value string) error {
	if key == "" {
		return types.ErrStorageKeyEmpty
	}

	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()

	atomic.AddUint64(&m.writes, 1)
	return nil
}

func (m *MemoryBackend) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()

	atomic.AddUint64(&m.writes, 1)
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

// Writes counts SetItem and RemoveItem calls since construction.
func (m *MemoryBackend) Writes() uint64 {
	return atomic.LoadUint64(&m.writes)
}

func (m *MemoryBackend) Start() error {
	if !m.state.CompareAndSwap(StateStopped, StateRunning) {
		return types.ErrAlreadyRunning
	}
	return nil
}

func (m *MemoryBackend) Stop() error {
	if !m.state.CompareAndSwap(StateRunning, StateStopped) {
		return types.ErrNotRunning
	}
	return nil
}

func (m *MemoryBackend) IsRunning() bool {
	return m.state.Load().(State) == StateRunning
}
