package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-timetable-engine/pkg/errors"
)

const termLockPrefix = "timetable:lock:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// TermLockRepository is a Redis lock that keeps two processes off the same term.
type TermLockRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTermLockRepository constructs the lock.
func NewTermLockRepository(client *redis.Client, ttl time.Duration) *TermLockRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TermLockRepository{client: client, ttl: ttl}
}

// Acquire takes the term lock or fails with ErrTermLocked. The returned release func
// is safe to call after the lock expired.
func (r *TermLockRepository) Acquire(ctx context.Context, termKey string) (func(context.Context) error, error) {
	key := termLockPrefix + termKey
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrTermLocked, fmt.Sprintf("term %s is being generated by another worker", termKey))
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}
