// Package lock serializes reorders of one list across processes.
//
// The database transaction already makes each reorder atomic. The lock is an
// optional outer layer for deployments where many workers share a database:
// it makes concurrent batches against the same list queue up front instead
// of contending on database locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked is returned when the context ends before the lock frees up.
	ErrLocked = errors.New("list is locked by another writer")

	// ErrLockLost is returned on release when the lock expired and was
	// taken over before the holder finished.
	ErrLockLost = errors.New("lock expired before release")
)

// Release gives up a held lock.
type Release func(ctx context.Context) error

// Locker acquires exclusive, expiring locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// NopLocker grants every lock immediately. Used when Redis is not configured.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string, time.Duration) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

const (
	keyPrefix            = "reorder:lock:"
	defaultRetryInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client        *redis.Client
	retryInterval time.Duration
}

// NewRedisLocker connects to the Redis server at redisURL.
func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisLockerWithClient(client), nil
}

// NewRedisLockerWithClient creates a locker from an existing Redis client.
func NewRedisLockerWithClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, retryInterval: defaultRetryInterval}
}

// Key returns the Redis key guarding a list lock key.
func Key(listKey string) string {
	return keyPrefix + listKey
}

// Acquire blocks until the lock for key is held or ctx ends. The lock
// expires after ttl even if never released.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	redisKey := Key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("acquire lock %s: %w: %w", key, ErrLocked, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.release(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w: %w", key, ErrLocked, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) Release {
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
		if err != nil {
			return fmt.Errorf("release lock %s: %w", redisKey, err)
		}
		if n == 0 {
			return fmt.Errorf("release lock %s: %w", redisKey, ErrLockLost)
		}
		return nil
	}
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
