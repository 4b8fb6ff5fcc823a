package cmd

import (
	"fmt"

	"github.com/probata/caseflow/pkg/locks"
	"github.com/redis/go-redis/v9"
)

// NewLocker returns a Redis-backed case locker when redisURL is set, falling
// back to an in-process keyed mutex for single-instance deployments.
func NewLocker(redisURL string) (locks.Locker, error) {
	if redisURL == "" {
		return locks.NewKeyedMutex(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return locks.NewRedisLocker(redis.NewClient(opts), 0), nil
}
