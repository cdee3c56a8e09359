package store

import (
	"context"
	"sync"

	"cdcvoucher/internal/ledger/models"
)

// InMemory keeps ledger lines in a slice. Test double for the file and
// postgres stores.
type InMemory struct {
	mu    sync.RWMutex
	lines []models.Line
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append implements Store.
func (m *InMemory) Append(ctx context.Context, lines []models.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, lines...)
	return nil
}

// ListByMerchant implements Store.
func (m *InMemory) ListByMerchant(ctx context.Context, merchantID string) ([]models.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Line
	for _, line := range m.lines {
		if line.MerchantID == merchantID {
			out = append(out, line)
		}
	}
	return out, nil
}

// All implements Store.
func (m *InMemory) All(ctx context.Context) ([]models.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Line, len(m.lines))
	copy(out, m.lines)
	return out, nil
}

// TransactionIDs implements Store.
func (m *InMemory) TransactionIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{}, len(m.lines))
	var ids []string
	for _, line := range m.lines {
		if _, ok := seen[line.TransactionID]; !ok {
			seen[line.TransactionID] = struct{}{}
			ids = append(ids, line.TransactionID)
		}
	}
	return ids, nil
}
