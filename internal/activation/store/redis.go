package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cdcvoucher/internal/activation/models"
	"cdcvoucher/pkg/platform/sentinel"
)

// keyPrefix namespaces activation keys in a shared Redis instance.
const keyPrefix = "activation:"

// Redis persists activation records as JSON values keyed by barcode. Used
// when several portal processes need to see activations immediately without
// sharing a data directory.
type Redis struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed activation store.
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

// Save implements Store. SETNX keeps barcode binding write-once.
func (r *Redis) Save(ctx context.Context, record models.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode activation: %w", err)
	}
	ok, err := r.client.SetNX(ctx, keyPrefix+record.Barcode, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("save activation: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

// Find implements Store.
func (r *Redis) Find(ctx context.Context, barcode string) (models.Record, error) {
	raw, err := r.client.Get(ctx, keyPrefix+barcode).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("find activation: %w: %w", sentinel.ErrUnavailable, err)
	}
	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.Record{}, fmt.Errorf("decode activation: %w", err)
	}
	return record, nil
}
