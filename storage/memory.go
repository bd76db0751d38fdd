package storage

import (
	"sync"

	"shopradar/models"
)

// MemoryStore keeps price history in memory. Used in tests and for
// one-shot runs that don't need durable history.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string][]models.PriceSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]models.PriceSnapshot)}
}

func (m *MemoryStore) Snapshots(productID string) ([]models.PriceSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.snapshots[productID]
	out := make([]models.PriceSnapshot, len(history))
	copy(out, history)
	return out, nil
}

func (m *MemoryStore) AppendSnapshot(snapshot *models.PriceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snapshot.ProductID] = append(m.snapshots[snapshot.ProductID], *snapshot)
	return nil
}
