package mailstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "gm"

// Store is the Redis-backed mail document store.
//
// A Store holds no per-request state and is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a Store on redisClient. An empty prefix selects "gm".
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// Ping measures one round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":u:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":e:" + email
}

func (s *Store) messageKey(id string) string {
	return s.prefix + ":m:" + id
}

func (s *Store) boxKey(userID string) string {
	return s.prefix + ":b:" + userID
}

func (s *Store) boxIndexKey(userID string) string {
	return s.prefix + ":bi:" + userID
}
