package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/pkozlov/trendrank/internal/config"
	"github.com/pkozlov/trendrank/pkg/logger"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses",
	})

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"},
	)

	cacheOpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_latency_seconds",
			Help:    "Cache operation latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"operation"},
	)
)

// scanBatchSize bounds how many keys a single pattern-delete DEL covers
const scanBatchSize = 500

// RedisCache implements Backend and Notifier on top of a Redis server.
// Every operation carries a per-call timeout from configuration.
type RedisCache struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisCache creates a Redis-backed cache and verifies connectivity
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
	)

	return &RedisCache{
		client:    rdb,
		opTimeout: cfg.OpTimeout,
	}, nil
}

func (r *RedisCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

// Get returns the cached value for key, or (nil, nil) on a miss
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	data, err := r.client.Get(ctx, key).Bytes()
	cacheOpLatency.WithLabelValues("get").Observe(time.Since(start).Seconds())

	if err == redis.Nil {
		cacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	cacheHits.Inc()
	return data, nil
}

// SetWithTTL stores value under key with the given TTL
func (r *RedisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := r.client.Set(ctx, key, value, ttl).Err()
	cacheOpLatency.WithLabelValues("set").Observe(time.Since(start).Seconds())

	if err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := r.client.Del(ctx, keys...).Err()
	cacheOpLatency.WithLabelValues("delete").Observe(time.Since(start).Seconds())

	if err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeleteByPattern enumerates keys matching the glob pattern with SCAN and
// deletes them in batches. List-then-delete is deliberate: it works on any
// Redis deployment, at the cost of a race where a key inserted mid-scan
// survives until its TTL expires.
func (r *RedisCache) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	// Pattern deletes walk the whole keyspace; give them more room than a
	// single point operation.
	scanTimeout := 10 * r.opTimeout
	if r.opTimeout <= 0 {
		scanTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	start := time.Now()
	deleted := 0
	batch := make([]string, 0, scanBatchSize)

	iter := r.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatchSize {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				cacheErrors.WithLabelValues("delete_pattern").Inc()
				return deleted, fmt.Errorf("cache pattern delete %s: %w", pattern, err)
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		cacheErrors.WithLabelValues("delete_pattern").Inc()
		return deleted, fmt.Errorf("cache pattern scan %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			cacheErrors.WithLabelValues("delete_pattern").Inc()
			return deleted, fmt.Errorf("cache pattern delete %s: %w", pattern, err)
		}
		deleted += len(batch)
	}

	cacheOpLatency.WithLabelValues("delete_pattern").Observe(time.Since(start).Seconds())
	return deleted, nil
}

// Publish publishes a JSON-serialized payload to a pub/sub channel
func (r *RedisCache) Publish(ctx context.Context, channel string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Publish(ctx, channel, jsonData).Err(); err != nil {
		cacheErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe subscribes to pub/sub channels
func (r *RedisCache) Subscribe(ctx context.Context, channels ...string) (<-chan Message, error) {
	pubsub := r.client.Subscribe(ctx, channels...)
	messageChan := make(chan Message, 100)

	go func() {
		defer close(messageChan)
		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					return
				}
				out := Message{
					Channel: msg.Channel,
					Payload: msg.Payload,
				}
				select {
				case messageChan <- out:
				case <-ctx.Done():
					pubsub.Close()
					return
				}
			}
		}
	}()

	return messageChan, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
