package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mwehr/cardpulse/internal/domain"
)

// MetricCache implements domain.MetricCache using plain Redis strings with
// JSON values and a per-entry TTL. Expiry is left entirely to Redis; there
// is no explicit invalidation path.
type MetricCache struct {
	rdb *redis.Client
}

// NewMetricCache creates a MetricCache backed by the given Client.
func NewMetricCache(c *Client) *MetricCache {
	return &MetricCache{rdb: c.Underlying()}
}

func metricKey(key string) string {
	return "metric:" + key
}

// Get loads a cached metric result into dest. It returns domain.ErrNotFound
// when the key is absent or has expired.
func (mc *MetricCache) Get(ctx context.Context, key string, dest any) error {
	data, err := mc.rdb.Get(ctx, metricKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis: get metric %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("redis: decode metric %s: %w", key, err)
	}
	return nil
}

// Set stores a metric result as JSON under the given TTL.
func (mc *MetricCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: encode metric %s: %w", key, err)
	}
	if err := mc.rdb.Set(ctx, metricKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set metric %s: %w", key, err)
	}
	return nil
}

var _ domain.MetricCache = (*MetricCache)(nil)
