package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when the case lock is held elsewhere and the
// caller's context expires before it frees up.
var ErrLockNotAcquired = errors.New("case lock not acquired")

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the lock key only when it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker serializes case operations across service instances using a
// token-guarded SET NX lock.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker creates a distributed per-case locker.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &RedisLocker{
		client: client,
		ttl:    ttl,
		retry:  50 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, caseID string) (func(), error) {
	key := "caseflow:lock:case:" + caseID
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire case lock: %w", err)
		}

		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	unlock := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}

	return unlock, nil
}
