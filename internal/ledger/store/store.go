// Package store persists the append-only transaction ledger. Three
// implementations share one interface: a CSV file matching the scheme's
// original transactions table, PostgreSQL for deployments that already run
// one, and in-memory for tests. No implementation exposes update or delete.
package store

import (
	"context"

	"cdcvoucher/internal/ledger/models"
)

// Store is the append-only ledger.
type Store interface {
	// Append adds the lines of one transaction. All-or-nothing per call.
	Append(ctx context.Context, lines []models.Line) error
	// ListByMerchant returns every line for a merchant in insertion order
	// (oldest first).
	ListByMerchant(ctx context.Context, merchantID string) ([]models.Line, error)
	// All returns every line in insertion order.
	All(ctx context.Context) ([]models.Line, error)
	// TransactionIDs returns the distinct transaction identifiers present,
	// feeding the sequential allocator.
	TransactionIDs(ctx context.Context) ([]string, error)
}
