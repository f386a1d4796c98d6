package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/pkozlov/trendrank/internal/cache"
	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/internal/store"
	"github.com/pkozlov/trendrank/pkg/logger"
)

// MutationChannel is the pub/sub channel carrying score mutation events.
// The refresher subscribes to it to coalesce early refresh cycles.
const MutationChannel = "rankings.mutated"

// MutationEvent is the payload published on MutationChannel
type MutationEvent struct {
	ItemID    string `json:"item_id"`
	Timestamp int64  `json:"timestamp"`
}

// Coordinator invalidates cached rankings in response to mutations.
//
// Invalidation is coarse: any mutation that could change list order drops
// the whole ranking namespace. Tracking which cached lists a given item
// affects would save recomputation but is much easier to get wrong; the TTL
// bounds what coarse invalidation misses.
//
// Every method returns an error the caller can log. Callers on hot paths may
// choose not to block on the result, but never discard it silently.
type Coordinator struct {
	cache    cache.Backend
	store    store.ItemStore
	engine   *scoring.Engine
	notifier cache.Notifier
}

// NewCoordinator creates an invalidation coordinator. notifier may be nil,
// in which case mutation events are not published.
func NewCoordinator(backend cache.Backend, itemStore store.ItemStore, engine *scoring.Engine, notifier cache.Notifier) *Coordinator {
	return &Coordinator{
		cache:    backend,
		store:    itemStore,
		engine:   engine,
		notifier: notifier,
	}
}

// InvalidateItem drops the per-item cache entry. It deliberately leaves
// ranking lists alone: a single counter change may not change list order.
// Callers needing strict list consistency also call InvalidateAllRankings.
func (c *Coordinator) InvalidateItem(ctx context.Context, itemID string) error {
	if err := c.cache.Delete(ctx, models.ItemCacheKey(itemID)); err != nil {
		logger.Warn("Failed to invalidate item cache entry",
			logger.ErrorField(err),
			logger.String("item_id", itemID),
		)
		return fmt.Errorf("invalidate item %s: %w", itemID, err)
	}
	return nil
}

// InvalidateAllRankings drops every cached ranking list regardless of scope
// and returns the number of keys removed
func (c *Coordinator) InvalidateAllRankings(ctx context.Context) (int, error) {
	deleted, err := c.cache.DeleteByPattern(ctx, models.RankingKeyPattern)
	if err != nil {
		logger.Warn("Failed to invalidate ranking namespace",
			logger.ErrorField(err),
			logger.String("pattern", models.RankingKeyPattern),
		)
		return deleted, fmt.Errorf("invalidate rankings: %w", err)
	}

	logger.Debug("Invalidated ranking namespace",
		logger.Int("keys_deleted", deleted),
	)
	return deleted, nil
}

// OnScoreMutation is called by collaborators after committing a change to an
// item's vote/comment/reaction counters. It recomputes and persists the
// item's score so proxy-sort queries see it, then coarsely invalidates the
// cached rankings.
//
// Store failures are returned; cache failures are logged and swallowed per
// the fail-open policy.
func (c *Coordinator) OnScoreMutation(ctx context.Context, itemID string) error {
	item, err := c.store.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("score mutation for %s: %w", itemID, err)
	}

	score := c.engine.Score(item.VoteCount, item.CommentCount, item.ReactionCount, item.CreatedAt, time.Now())
	if err := c.store.PersistScore(ctx, itemID, score); err != nil {
		return fmt.Errorf("score mutation for %s: %w", itemID, err)
	}

	// Cache invalidation failures are logged inside the calls; a stale
	// entry expires with its TTL.
	_ = c.InvalidateItem(ctx, itemID)
	_, _ = c.InvalidateAllRankings(ctx)

	c.publishMutation(ctx, itemID)
	return nil
}

func (c *Coordinator) publishMutation(ctx context.Context, itemID string) {
	if c.notifier == nil {
		return
	}
	event := MutationEvent{
		ItemID:    itemID,
		Timestamp: time.Now().Unix(),
	}
	if err := c.notifier.Publish(ctx, MutationChannel, event); err != nil {
		logger.Warn("Failed to publish mutation event",
			logger.ErrorField(err),
			logger.String("item_id", itemID),
		)
	}
}
