// Package cache provides the key/value cache backend used for ranking
// snapshots and per-item entries.
//
// The cache is an optimization, never a source of truth. Callers on the read
// path treat any returned error as a miss and fall through to the durable
// store (fail open); callers on the write path log and continue. Invalidation
// callers get the error back so they can record it.
package cache

import (
	"context"
	"time"
)

// Backend defines the cache backend contract
type Backend interface {
	// Get returns the cached value for key, or (nil, nil) on a miss
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores value under key with the given TTL
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPattern removes every key matching the glob pattern and
	// returns the number of keys deleted. Implementations enumerate
	// matching keys first and then delete them; a key inserted between the
	// two steps survives. That staleness window is accepted, the TTL bounds
	// it.
	DeleteByPattern(ctx context.Context, pattern string) (int, error)

	// Close closes the backend connection
	Close() error
}

// Message is a notification received from a pub/sub channel
type Message struct {
	Channel string
	Payload string
}

// Notifier publishes and subscribes to lightweight notification channels,
// used to signal ranking mutations across processes.
type Notifier interface {
	// Publish publishes payload (JSON-serialized) to a channel
	Publish(ctx context.Context, channel string, payload interface{}) error

	// Subscribe subscribes to channels; the returned channel is closed when
	// ctx is cancelled
	Subscribe(ctx context.Context, channels ...string) (<-chan Message, error)
}
