// Package redis keeps idempotency records in Redis so replays survive restarts
// and are shared between instances.
package redis

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"

	"rentals/internal/app/middleware"
)

const idempotencyPrefix = "rentals:idem:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type IdempotencyStore struct {
	client goredis.UniversalClient
	TTL    time.Duration
}

func NewIdempotencyStore(client goredis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, TTL: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	var rec middleware.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return rec, true, nil
}

// Save keeps the first record written for a key.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.SetNX(ctx, idempotencyPrefix+rec.Key, raw, s.TTL).Err()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
