package store

import (
	"context"
	"sync"

	"cdcvoucher/internal/merchant/models"
	"cdcvoucher/pkg/platform/sentinel"
)

// InMemory keeps merchant records in a slice. Test double for File.
type InMemory struct {
	mu        sync.RWMutex
	merchants []*models.Merchant
}

// NewInMemory constructs an empty in-memory merchant store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append implements Store.
func (m *InMemory) Append(ctx context.Context, merchant *models.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *merchant
	m.merchants = append(m.merchants, &copied)
	return nil
}

// Find implements Store.
func (m *InMemory) Find(ctx context.Context, merchantID string) (*models.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, merchant := range m.merchants {
		if merchant.ID == merchantID {
			copied := *merchant
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// All implements Store.
func (m *InMemory) All(ctx context.Context) ([]*models.Merchant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Merchant, 0, len(m.merchants))
	for _, merchant := range m.merchants {
		copied := *merchant
		out = append(out, &copied)
	}
	return out, nil
}
