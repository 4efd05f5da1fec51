// --- File: internal/storage/rendezvous/redis.go ---
// Package rendezvous provides the shared-cache backed implementation of
// pkg/rendezvous.Store, for horizontally scaled deployments.
package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tinywideclouds/callwake-middleware/pkg/rendezvous"
)

// RedisClient is the subset of redis.Client methods the store needs. A
// cluster-aware client (redis.ClusterClient) satisfies the same methods
// and can be substituted without touching RedisStore.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore adapts a go-redis client to rendezvous.Store. Unlike the
// notification-token cache this is grounded on, values here are short
// plain strings (platform placeholders or "True"/"False"), never JSON.
type RedisStore struct {
	rdb RedisClient
}

// NewRedisStore wraps an already-connected redis client.
func NewRedisStore(rdb RedisClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisClient dials a single-node or cluster-fronting Redis endpoint,
// failing fast if the connection is bad, mirroring the teacher's
// connect-and-ping-on-construct pattern.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", rendezvous.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
