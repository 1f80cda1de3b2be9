package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"rentals/internal/app/middleware"
)

func getRedisClient(t *testing.T) *goredis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	client.Del(ctx, idempotencyPrefix+"k1")
	store := NewIdempotencyStore(client, time.Minute)

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.False(t, found)

	first := middleware.IdempotencyRecord{Key: "k1", Command: "rentals.create", Payload: []byte(`{"id":"r1"}`), OccurredAt: time.Now().UTC()}
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Command: "rentals.cancel"}))

	got, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "rentals.create", got.Command)
	require.JSONEq(t, `{"id":"r1"}`, string(got.Payload))
}
