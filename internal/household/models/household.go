package models

import (
	"sort"

	dErrors "cdcvoucher/pkg/domain-errors"
)

// Voucher position states. A position is a single voucher unit within one
// household's pool for one denomination.
const (
	StateUnused uint8 = 0
	StateUsed   uint8 = 1
)

// Household binds a normalized national identifier to an allocated household
// identifier (H0001, H0002, ...).
//
// Invariants:
//   - NationalID is normalized (trimmed, uppercased) and non-empty
//   - HouseholdID is assigned in strictly increasing order starting at H0001
//   - The NationalID -> HouseholdID mapping is a bijection onto allocated ids
//   - A household is never deleted once registered
type Household struct {
	NationalID  string `json:"national_id"`
	HouseholdID string `json:"household_id"`
}

// Pool is one household's voucher state: denomination -> ordered positions.
// Index i in the slice is voucher number i+1 on the wire. Once a position
// flips to StateUsed it never reverts, and the slices are never resized after
// creation.
type Pool map[int][]uint8

// NewPool builds an all-unused pool from the configured denomination table.
func NewPool(counts map[int]int) Pool {
	pool := make(Pool, len(counts))
	for denom, count := range counts {
		pool[denom] = make([]uint8, count)
	}
	return pool
}

// Clone deep-copies the pool so callers can hand out state without exposing
// the store's backing slices.
func (p Pool) Clone() Pool {
	clone := make(Pool, len(p))
	for denom, states := range p {
		copied := make([]uint8, len(states))
		copy(copied, states)
		clone[denom] = copied
	}
	return clone
}

// Denominations returns the pool's denominations in ascending order.
func (p Pool) Denominations() []int {
	denoms := make([]int, 0, len(p))
	for d := range p {
		denoms = append(denoms, d)
	}
	sort.Ints(denoms)
	return denoms
}

// Balance sums the face value of every unused position.
func (p Pool) Balance() int {
	total := 0
	for denom, states := range p {
		for _, state := range states {
			if state == StateUnused {
				total += denom
			}
		}
	}
	return total
}

// Remaining counts unused positions per denomination.
func (p Pool) Remaining() map[int]int {
	remaining := make(map[int]int, len(p))
	for denom, states := range p {
		n := 0
		for _, state := range states {
			if state == StateUnused {
				n++
			}
		}
		remaining[denom] = n
	}
	return remaining
}

// Registration is the outcome of registering a national identifier.
type Registration struct {
	// NationalID is the normalized identifier. Populated even when
	// registration fails validation, so callers can echo it back.
	NationalID string `json:"national_id"`
	// HouseholdID is empty when registration failed.
	HouseholdID string `json:"household_id"`
	// AlreadyRegistered reports an idempotent re-registration.
	AlreadyRegistered bool `json:"already_registered"`
}

// ValidateCounts rejects a denomination table the registry cannot initialize
// pools from.
func ValidateCounts(counts map[int]int) error {
	if len(counts) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "voucher count table cannot be empty")
	}
	for denom, count := range counts {
		if denom <= 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "denomination %d must be positive", denom)
		}
		if count <= 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "pool length %d for denomination %d must be positive", count, denom)
		}
	}
	return nil
}
