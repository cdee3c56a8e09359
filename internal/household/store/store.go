// Package store owns the durable household state: the national-identifier ->
// household-identifier mapping and the per-household voucher pools.
//
// Stores are interface-driven to keep the domain logic testable and to allow
// swapping file-backed and in-memory persistence without rewiring business
// code. Stores return sentinel errors; services translate them into coded
// domain errors.
package store

import (
	"context"

	"cdcvoucher/internal/household/models"
)

// Txn exposes household state to a callback running under the store's single
// coarse lock. The read-check-allocate-persist sequence of registration and
// the read-validate-mutate-persist sequence of redemption both execute as one
// Txn, which is what makes the double-spend guard hold under concurrency.
type Txn interface {
	// Reload rehydrates in-memory state from durable storage so validation
	// observes the freshest known state, including writes made by external
	// editors of the backing files.
	Reload() error
	// Persist writes the complete current state, fully overwriting prior
	// content. Not an incremental diff.
	Persist() error

	// FindByNationalID returns the household id mapped to a normalized
	// national identifier, or sentinel.ErrNotFound.
	FindByNationalID(nationalID string) (string, error)
	// Register records an identity mapping. sentinel.ErrConflict if the
	// national identifier is already mapped.
	Register(nationalID, householdID string) error
	// Households lists every registered household identifier.
	Households() []string

	// HasPool reports whether a voucher pool exists for the household.
	HasPool(householdID string) bool
	// InitPool creates a fresh all-unused pool from the configured
	// denomination table. sentinel.ErrConflict if a pool already exists;
	// callers must check first.
	InitPool(householdID string) error
	// Pool returns a deep copy of the household's pool, or
	// sentinel.ErrNotFound.
	Pool(householdID string) (models.Pool, error)
	// States returns a copy of the ordered position states for one
	// denomination. sentinel.ErrNotFound for unknown household or
	// denomination.
	States(householdID string, denom int) ([]uint8, error)
	// State reads a single position. sentinel.ErrOutOfRange when index is
	// outside [0, len).
	State(householdID string, denom, index int) (uint8, error)
	// SetUsed flips a position to used. sentinel.ErrOutOfRange when index is
	// outside [0, len). The transition is one-way; SetUnused does not exist.
	SetUsed(householdID string, denom, index int) error
	// SetUnusedForRollback reverts a position flipped earlier in the same
	// Txn whose Persist failed. It must never be reachable from outside a
	// failed-persist rollback.
	SetUnusedForRollback(householdID string, denom, index int) error
}

// Store is the durable household state registry.
type Store interface {
	// Load rehydrates state from durable storage. A missing store is empty;
	// a corrupt store is treated as empty and logged as a warning.
	Load(ctx context.Context) error
	// Save persists the complete current state.
	Save(ctx context.Context) error
	// EnsureAllInitialized creates pools for any household present in the
	// identity mapping but missing from the pool mapping (repair after a
	// prior partial write). Returns how many pools were created.
	EnsureAllInitialized(ctx context.Context) (int, error)

	// FindByNationalID, Households, and Pool are read paths for handlers and
	// reports; each takes the lock only for the single call.
	FindByNationalID(ctx context.Context, nationalID string) (string, error)
	Households(ctx context.Context) ([]string, error)
	Pool(ctx context.Context, householdID string) (models.Pool, error)

	// Update runs fn under the store's single mutual-exclusion lock. If fn
	// returns an error, nothing fn persisted is rolled back by the store;
	// callers own their rollback (see Txn.SetUnusedForRollback).
	Update(ctx context.Context, fn func(Txn) error) error
}
