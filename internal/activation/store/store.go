// Package store persists activation records: barcode -> voucher bundle.
// The lookup path is read-only and cheap, which is why the redemption engine
// resolves barcodes before taking the state-store lock.
package store

import (
	"context"

	"cdcvoucher/internal/activation/models"
)

// Store holds activation records keyed by barcode.
type Store interface {
	// Save appends an activation record. sentinel.ErrConflict if the barcode
	// is already bound.
	Save(ctx context.Context, record models.Record) error
	// Find returns the record for a barcode, or sentinel.ErrNotFound.
	Find(ctx context.Context, barcode string) (models.Record, error)
}
