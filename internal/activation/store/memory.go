package store

import (
	"context"
	"sync"

	"cdcvoucher/internal/activation/models"
	"cdcvoucher/pkg/platform/sentinel"
)

// InMemory keeps activation records in a map. Test double for the file and
// redis stores.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

// NewInMemory constructs an empty in-memory activation store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]models.Record)}
}

// Save implements Store.
func (m *InMemory) Save(ctx context.Context, record models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.Barcode]; ok {
		return sentinel.ErrConflict
	}
	m.records[record.Barcode] = record
	return nil
}

// Find implements Store.
func (m *InMemory) Find(ctx context.Context, barcode string) (models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[barcode]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return record, nil
}
