// Package store persists merchant records. The file implementation keeps the
// original merchant.csv layout; redemption and reporting consume it read-only.
package store

import (
	"context"

	"cdcvoucher/internal/merchant/models"
)

// Store is the merchant registry.
type Store interface {
	// Append adds a new merchant record.
	Append(ctx context.Context, merchant *models.Merchant) error
	// Find returns a merchant by id, or sentinel.ErrNotFound.
	Find(ctx context.Context, merchantID string) (*models.Merchant, error)
	// All returns every merchant in registration order.
	All(ctx context.Context) ([]*models.Merchant, error)
}
