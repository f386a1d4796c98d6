// Package ranking implements the read-through ranking cache and the
// invalidation coordinator over the cache backend and the durable store.
package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pkozlov/trendrank/internal/cache"
	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/internal/store"
	"github.com/pkozlov/trendrank/pkg/logger"
)

// Service serves trending rankings through the cache. On a miss it queries
// the durable store, scores the candidates, re-sorts, and writes the
// snapshot through.
//
// Concurrent misses for the same key recompute redundantly and overwrite
// each other (last write wins). Recomputation is read-only and idempotent,
// so a stampede costs extra store queries but never corrupts the cache; the
// design accepts that over locking.
type Service struct {
	store        store.ItemStore
	cache        cache.Backend
	engine       *scoring.Engine
	listTTL      time.Duration
	itemTTL      time.Duration
	defaultLimit int
	maxLimit     int
}

// NewService creates a ranking service
func NewService(itemStore store.ItemStore, backend cache.Backend, engine *scoring.Engine, listTTL, itemTTL time.Duration, defaultLimit, maxLimit int) *Service {
	return &Service{
		store:        itemStore,
		cache:        backend,
		engine:       engine,
		listTTL:      listTTL,
		itemTTL:      itemTTL,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// GetTopRanked returns the top items for a scope, ordered by descending
// trending score. Cache failures degrade to direct store reads; a store
// failure is returned to the caller.
func (s *Service) GetTopRanked(ctx context.Context, scope models.Scope, limit int) ([]models.RankedItem, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	key := models.RankingCacheKey(scope, limit)

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		// Fail open: a broken cache must not fail the request
		logger.Warn("Cache read failed, falling back to store",
			logger.ErrorField(err),
			logger.String("key", key),
		)
	} else if data != nil {
		var snapshot models.RankingSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			logger.Warn("Discarding undecodable cached snapshot",
				logger.ErrorField(err),
				logger.String("key", key),
			)
		} else {
			return snapshot.Items, nil
		}
	}

	items, err := s.recompute(ctx, scope, limit)
	if err != nil {
		return nil, err
	}

	snapshot := models.RankingSnapshot{
		Scope:       scope,
		Limit:       limit,
		GeneratedAt: time.Now(),
		Items:       items,
	}
	if data, err := json.Marshal(snapshot); err != nil {
		logger.Warn("Failed to serialize ranking snapshot",
			logger.ErrorField(err),
			logger.String("key", key),
		)
	} else if err := s.cache.SetWithTTL(ctx, key, data, s.listTTL); err != nil {
		logger.Warn("Failed to cache ranking snapshot",
			logger.ErrorField(err),
			logger.String("key", key),
		)
	}

	return items, nil
}

// recompute queries the store and orders the candidates by score. The proxy
// sort bounds the candidate set but is not the final order.
func (s *Service) recompute(ctx context.Context, scope models.Scope, limit int) ([]models.RankedItem, error) {
	items, err := s.store.QueryTopByEngagement(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}

	now := time.Now()
	for i := range items {
		items[i].Score = s.engine.Score(
			items[i].VoteCount,
			items[i].CommentCount,
			items[i].ReactionCount,
			items[i].CreatedAt,
			now,
		)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	return items, nil
}

// GetItem returns a single item with its current score, read through the
// per-item cache namespace.
func (s *Service) GetItem(ctx context.Context, itemID string) (*models.RankedItem, error) {
	key := models.ItemCacheKey(itemID)

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache read failed, falling back to store",
			logger.ErrorField(err),
			logger.String("key", key),
		)
	} else if data != nil {
		var item models.RankedItem
		if err := json.Unmarshal(data, &item); err == nil {
			return &item, nil
		}
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.Score = s.engine.Score(item.VoteCount, item.CommentCount, item.ReactionCount, item.CreatedAt, time.Now())

	if data, err := json.Marshal(item); err == nil {
		if err := s.cache.SetWithTTL(ctx, key, data, s.itemTTL); err != nil {
			logger.Warn("Failed to cache item",
				logger.ErrorField(err),
				logger.String("key", key),
			)
		}
	}

	return item, nil
}

// ItemVelocity returns the votes-per-hour secondary signal for an item
func (s *Service) ItemVelocity(ctx context.Context, itemID string) (float64, error) {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return s.engine.Velocity(item.VoteCount, item.CreatedAt, time.Now()), nil
}
