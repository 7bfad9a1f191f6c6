package conversation

import (
	"context"
	"slices"
	"sync"

	"AEye/internal/service/assistant"
)

// MemoryStore история в памяти процесса. Теряется при перезапуске.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]assistant.History
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]assistant.History)}
}

func (m *MemoryStore) Read(_ context.Context, key string) (assistant.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data[key]), nil
}

func (m *MemoryStore) Write(_ context.Context, key string, h assistant.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(h)
	return nil
}
