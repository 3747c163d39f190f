package snapshot

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chanhduy633/checkout-service/domain"
)

// MemoryStore is the in-process Store used in tests and local runs without
// Redis. Values are stored as JSON so it round-trips the same way.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (*domain.CartSnapshot, error) {
	m.mu.RLock()
	data, ok := m.data[userID]
	m.mu.RUnlock()
	if !ok {
		return domain.EmptyCartSnapshot(), nil
	}

	var snap domain.CartSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.EmptyCartSnapshot(), nil
	}
	snap.TotalAmount = snap.ComputeTotal()
	if snap.Items == nil {
		snap.Items = []domain.CartLine{}
	}
	return &snap, nil
}

func (m *MemoryStore) Save(_ context.Context, userID string, snap *domain.CartSnapshot) error {
	normalize(snap)
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[userID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.data, userID)
	m.mu.Unlock()
	return nil
}
