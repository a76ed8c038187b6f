package domain

import (
	"context"
	"time"
)

// MetricCache memoizes computed metric results under a short TTL. Keys
// encode the full parameter tuple; two calls with an identical key inside
// the TTL must observe byte-identical results, and a call differing in any
// parameter is always a miss. Entries are never invalidated explicitly;
// staleness bounded by the TTL is the accepted trade-off.
//
// Concurrent misses for the same key may each compute and Set independently;
// computations are read-only and idempotent, so no single-flight
// coordination is required.
type MetricCache interface {
	// Get unmarshals the cached value into dest, returning ErrNotFound on
	// a miss or expired entry.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// RateLimiter provides distributed rate limiting for the API surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Locker provides distributed mutual exclusion for background jobs that
// must not run concurrently across instances, such as archive sweeps.
type Locker interface {
	// Acquire obtains the named lock for at most ttl and returns an unlock
	// function. It returns ErrLockHeld when another holder has the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// UpdateBus fans freshly computed metrics out to other processes, letting
// the cache warmer feed WebSocket subscribers served by a different
// instance.
type UpdateBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of payloads that is closed when ctx is
	// cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// MetricUpdatePattern is the wildcard bus subscription covering every
// per-card metric update channel.
const MetricUpdatePattern = "metrics:*"

// MetricUpdateChannel returns the bus channel carrying metric updates for
// one card.
func MetricUpdateChannel(cardID string) string {
	return "metrics:" + cardID
}
