// --- File: internal/storage/devices/cached.go ---
package devices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/callwake-middleware/pkg/calldevice"
)

// CacheClient is the subset of Redis commands the read-aside decorator
// needs, matching the teacher's CachedTokenStore contract.
type CacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedRepository is a Decorator adding read-aside caching in front of
// any calldevice.Repository. The device lookup is on the hot path of
// every /incoming-call request, so a cache hit saves a Firestore round
// trip inside the wait budget.
type CachedRepository struct {
	real   calldevice.Repository
	cache  CacheClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository creates the decorator.
func NewCachedRepository(real calldevice.Repository, cache CacheClient, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{real: real, cache: cache, ttl: ttl, logger: logger.With("component", "CachedDeviceRepository")}
}

func (c *CachedRepository) Get(ctx context.Context, sipUserID string) (calldevice.Device, error) {
	key := c.cacheKey(sipUserID)

	if cached, err := c.cache.Get(ctx, key); err == nil {
		if dev, ok := decode(cached); ok {
			dev.SipUserID = sipUserID
			return dev, nil
		}
	}

	dev, err := c.real.Get(ctx, sipUserID)
	if err != nil {
		return calldevice.Device{}, err
	}

	// Best effort: the cache write runs inline, but a failure is only
	// logged, so Redis being down does not break lookups.
	if err := c.cache.Set(ctx, key, encode(dev), c.ttl); err != nil {
		c.logger.Warn("Failed to populate device cache", "err", err, "sip_user_id", sipUserID)
	}

	return dev, nil
}

func (c *CachedRepository) cacheKey(sipUserID string) string {
	return fmt.Sprintf("callwake:device:%s", sipUserID)
}

// encode/decode use a tiny pipe-delimited format instead of JSON: the
// cached payload is four short scalar fields, not worth a marshal step.
func encode(d calldevice.Device) string {
	sandbox := "0"
	if d.Sandbox {
		sandbox = "1"
	}
	return d.PushToken + "|" + string(d.Platform) + "|" + sandbox + "|" + d.AppPushCredentialRef
}

func decode(raw string) (calldevice.Device, bool) {
	parts := splitN4(raw)
	if parts == nil {
		return calldevice.Device{}, false
	}
	return calldevice.Device{
		PushToken:            parts[0],
		Platform:             calldevice.Platform(parts[1]),
		Sandbox:              parts[2] == "1",
		AppPushCredentialRef: parts[3],
	}, true
}

func splitN4(raw string) []string {
	out := make([]string, 0, 4)
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '|' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	out = append(out, raw[start:])
	if len(out) != 4 {
		return nil
	}
	return out
}
