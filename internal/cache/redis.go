package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/scaninv/internal/domain"
)

const redisKeyPrefix = "scaninv:lookup:"

// Redis shares lookup results between processes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

type redisRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Barcode     string          `json:"barcode"`
	Category    string          `json:"category"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	var rows []redisRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}

	entry := Entry{Records: make([]*domain.Record, 0, len(rows))}
	for _, row := range rows {
		entry.Records = append(entry.Records, &domain.Record{
			ID:          row.ID,
			Name:        row.Name,
			Barcode:     row.Barcode,
			Category:    row.Category,
			Quantity:    row.Quantity,
			Price:       row.Price,
			LastUpdated: row.LastUpdated,
		})
	}
	return entry, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, entry Entry) error {
	rows := make([]redisRecord, 0, len(entry.Records))
	for _, rec := range entry.Records {
		rows = append(rows, redisRecord{
			ID:          rec.ID,
			Name:        rec.Name,
			Barcode:     rec.Barcode,
			Category:    rec.Category,
			Quantity:    rec.Quantity,
			Price:       rec.Price,
			LastUpdated: rec.LastUpdated,
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = redisKeyPrefix + k
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	return nil
}
