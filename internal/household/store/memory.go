package store

import (
	"context"
	"fmt"
	"sync"

	"cdcvoucher/internal/household/models"
	"cdcvoucher/pkg/platform/sentinel"
)

// InMemory implements Store without durable storage. Used by tests and by
// deployments that accept losing state on restart. Reload and Persist are
// no-ops, so unlike File a failed redemption cannot be healed by a reload;
// the engine's explicit rollback covers both.
type InMemory struct {
	mu     sync.Mutex
	counts map[int]int

	identities map[string]string
	order      []string
	pools      map[string]models.Pool

	// persistErr, when set, makes the next Persist fail. Lets tests exercise
	// the durable-write failure path.
	persistErr error
}

// NewInMemory constructs an empty in-memory store with the given
// denomination table.
func NewInMemory(counts map[int]int) *InMemory {
	return &InMemory{
		counts:     counts,
		identities: make(map[string]string),
		pools:      make(map[string]models.Pool),
	}
}

// FailNextPersist arms a one-shot persistence failure.
func (m *InMemory) FailNextPersist(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistErr = err
}

// Load implements Store.
func (m *InMemory) Load(ctx context.Context) error { return nil }

// Save implements Store.
func (m *InMemory) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takePersistErr()
}

// EnsureAllInitialized implements Store.
func (m *InMemory) EnsureAllInitialized(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := 0
	for _, nationalID := range m.order {
		householdID := m.identities[nationalID]
		if _, ok := m.pools[householdID]; !ok {
			m.pools[householdID] = models.NewPool(m.counts)
			created++
		}
	}
	return created, nil
}

// FindByNationalID implements Store.
func (m *InMemory) FindByNationalID(ctx context.Context, nationalID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTxn{m}).FindByNationalID(nationalID)
}

// Households implements Store.
func (m *InMemory) Households(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTxn{m}).Households(), nil
}

// Pool implements Store.
func (m *InMemory) Pool(ctx context.Context, householdID string) (models.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTxn{m}).Pool(householdID)
}

// Update implements Store.
func (m *InMemory) Update(ctx context.Context, fn func(Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTxn{m})
}

func (m *InMemory) takePersistErr() error {
	err := m.persistErr
	m.persistErr = nil
	return err
}

type memTxn struct {
	m *InMemory
}

func (t *memTxn) Reload() error  { return nil }
func (t *memTxn) Persist() error { return t.m.takePersistErr() }

func (t *memTxn) FindByNationalID(nationalID string) (string, error) {
	householdID, ok := t.m.identities[nationalID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return householdID, nil
}

func (t *memTxn) Register(nationalID, householdID string) error {
	if _, ok := t.m.identities[nationalID]; ok {
		return sentinel.ErrConflict
	}
	t.m.identities[nationalID] = householdID
	t.m.order = append(t.m.order, nationalID)
	return nil
}

func (t *memTxn) Households() []string {
	ids := make([]string, 0, len(t.m.order))
	for _, nationalID := range t.m.order {
		ids = append(ids, t.m.identities[nationalID])
	}
	return ids
}

func (t *memTxn) HasPool(householdID string) bool {
	_, ok := t.m.pools[householdID]
	return ok
}

func (t *memTxn) InitPool(householdID string) error {
	if _, ok := t.m.pools[householdID]; ok {
		return sentinel.ErrConflict
	}
	t.m.pools[householdID] = models.NewPool(t.m.counts)
	return nil
}

func (t *memTxn) Pool(householdID string) (models.Pool, error) {
	pool, ok := t.m.pools[householdID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return pool.Clone(), nil
}

func (t *memTxn) States(householdID string, denom int) ([]uint8, error) {
	states, err := t.states(householdID, denom)
	if err != nil {
		return nil, err
	}
	copied := make([]uint8, len(states))
	copy(copied, states)
	return copied, nil
}

func (t *memTxn) State(householdID string, denom, index int) (uint8, error) {
	states, err := t.states(householdID, denom)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(states) {
		return 0, fmt.Errorf("index %d outside pool of length %d: %w", index, len(states), sentinel.ErrOutOfRange)
	}
	return states[index], nil
}

func (t *memTxn) SetUsed(householdID string, denom, index int) error {
	return t.set(householdID, denom, index, models.StateUsed)
}

func (t *memTxn) SetUnusedForRollback(householdID string, denom, index int) error {
	return t.set(householdID, denom, index, models.StateUnused)
}

func (t *memTxn) set(householdID string, denom, index int, state uint8) error {
	states, err := t.states(householdID, denom)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(states) {
		return fmt.Errorf("index %d outside pool of length %d: %w", index, len(states), sentinel.ErrOutOfRange)
	}
	if state == models.StateUsed && states[index] == models.StateUsed {
		return sentinel.ErrAlreadyUsed
	}
	states[index] = state
	return nil
}

func (t *memTxn) states(householdID string, denom int) ([]uint8, error) {
	pool, ok := t.m.pools[householdID]
	if !ok {
		return nil, fmt.Errorf("household %s: %w", householdID, sentinel.ErrNotFound)
	}
	states, ok := pool[denom]
	if !ok {
		return nil, fmt.Errorf("household %s denomination %d: %w", householdID, denom, sentinel.ErrNotFound)
	}
	return states, nil
}
