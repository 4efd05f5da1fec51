// --- File: internal/storage/rediskv/client.go ---
// Package rediskv is the one place a *redis.Client turns into the small
// string-oriented contracts the rest of the service depends on
// (device cache reads, metric queue appends). Generalizes the teacher's
// single-purpose Redis wrapper into the handful of primitives this
// service's components share.
package rediskv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis for plain string Get/Set and list append/trim,
// satisfying both internal/storage/devices.CacheClient and
// internal/metrics's queue contract.
type Client struct {
	rdb *redis.Client
}

// New wraps an already-connected redis client.
func New(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errNotFound
	}
	return val, err
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Append pushes record onto the right of the named queue and trims it to
// maxLen, implementing spec.md §6's "list-append/trim operations for
// metric queues" directly against Redis lists.
func (c *Client) Append(ctx context.Context, queue, record string, maxLen int64) error {
	if err := c.rdb.RPush(ctx, queue, record).Err(); err != nil {
		return err
	}
	return c.rdb.LTrim(ctx, queue, -maxLen, -1).Err()
}

var errNotFound = errors.New("rediskv: key not found")
