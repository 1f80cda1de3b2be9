// Package redis serializes per-item work across processes with Redis locks.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"rentals/internal/app/uow"
)

const (
	keyPrefix        = "rentals:lock:"
	defaultTTL       = 30 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

var ErrLockTimeout = errors.New("redis lock: timed out waiting for lock")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type Locker struct {
	client    goredis.UniversalClient
	TTL       time.Duration
	RetryWait time.Duration
}

func NewLocker(client goredis.UniversalClient) *Locker {
	return &Locker{client: client, TTL: defaultTTL, RetryWait: defaultRetryWait}
}

// Acquire blocks until the key is free or ctx ends. The lock expires after
// TTL even if the holder dies.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := keyPrefix + key
	wait := l.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl()).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), l.client, []string{redisKey}, token).Err()
			}, nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) ttl() time.Duration {
	if l.TTL <= 0 {
		return defaultTTL
	}
	return l.TTL
}

var _ uow.Locker = (*Locker)(nil)
