// Package refresh implements the periodic ranking refresh job. A cycle
// recomputes every published item's score in bulk, re-scores recently
// mutated items individually, then invalidates the cached rankings. Cycles
// bound staleness even for write paths that never signal a mutation.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/ranking"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/internal/store"
	"github.com/pkozlov/trendrank/pkg/logger"
)

var (
	refreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "skipped"
	)

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "refresh_cycle_duration_seconds",
		Help:    "Refresh cycle duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	refreshItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "refresh_items_refreshed",
		Help: "Number of items refreshed by the last cycle",
	})
)

// Result reports the outcome of a refresh cycle
type Result struct {
	RunID          string `json:"run_id"`
	Success        bool   `json:"success"`
	Skipped        bool   `json:"skipped"`
	DurationMs     int64  `json:"duration_ms"`
	ItemsRefreshed int64  `json:"items_refreshed"`
	TargetedItems  int    `json:"targeted_items"`
}

// Scheduler runs refresh cycles against the durable store.
//
// Overlap policy: a cycle requested while another is running is skipped (not
// queued). Two concurrent cycles would race on invalidation ordering against
// the same store, and the caller's next tick picks the work up anyway.
type Scheduler struct {
	store         store.ItemStore
	coordinator   *ranking.Coordinator
	engine        *scoring.Engine
	recencyWindow time.Duration

	running atomic.Bool
}

// NewScheduler creates a refresh scheduler
func NewScheduler(itemStore store.ItemStore, coordinator *ranking.Coordinator, engine *scoring.Engine, recencyWindow time.Duration) *Scheduler {
	return &Scheduler{
		store:         itemStore,
		coordinator:   coordinator,
		engine:        engine,
		recencyWindow: recencyWindow,
	}
}

// RunRefreshCycle performs one full refresh. Safe to re-run; a failed cycle
// leaves the store no worse than before. The caller decides on retry and
// backoff.
func (s *Scheduler) RunRefreshCycle(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.New().String()}

	if !s.running.CompareAndSwap(false, true) {
		result.Skipped = true
		refreshCycles.WithLabelValues("skipped").Inc()
		logger.Info("Refresh cycle already running, skipping",
			logger.String("run_id", result.RunID),
		)
		return result, nil
	}
	defer s.running.Store(false)

	start := time.Now()
	finish := func(err error) (*Result, error) {
		result.DurationMs = time.Since(start).Milliseconds()
		refreshDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			refreshCycles.WithLabelValues("failure").Inc()
			logger.Error("Refresh cycle failed",
				logger.ErrorField(err),
				logger.String("run_id", result.RunID),
				logger.Int64("duration_ms", result.DurationMs),
			)
			return result, err
		}
		result.Success = true
		refreshCycles.WithLabelValues("success").Inc()
		refreshItems.Set(float64(result.ItemsRefreshed))
		logger.Info("Refresh cycle completed",
			logger.String("run_id", result.RunID),
			logger.Int64("duration_ms", result.DurationMs),
			logger.Int64("items_refreshed", result.ItemsRefreshed),
			logger.Int("targeted_items", result.TargetedItems),
		)
		return result, nil
	}

	// Step 1: bulk recompute in the store
	refreshed, err := s.store.RecomputeAllScores(ctx, s.engine.Weights())
	if err != nil {
		return finish(fmt.Errorf("bulk recompute: %w", err))
	}
	result.ItemsRefreshed = refreshed

	// Step 2: targeted recompute of recently mutated items. This repeats
	// work the bulk step already did for those items, deliberately: it
	// covers write paths that bump counters without signaling a mutation.
	since := start.Add(-s.recencyWindow)
	ids, err := s.store.QueryRecentlyMutated(ctx, since)
	if err != nil {
		return finish(fmt.Errorf("query recently mutated: %w", err))
	}
	for _, id := range ids {
		if err := s.refreshItem(ctx, id); err != nil {
			// Tolerate partial failure within the targeted pass; the item
			// keeps its bulk-step score
			logger.Warn("Failed targeted refresh",
				logger.ErrorField(err),
				logger.String("run_id", result.RunID),
				logger.String("item_id", id),
			)
			continue
		}
		result.TargetedItems++
	}

	// Step 3: drop stale cached rankings. Cache failures are fail-open;
	// the TTL bounds whatever this misses.
	if _, err := s.coordinator.InvalidateAllRankings(ctx); err != nil {
		logger.Warn("Refresh cycle could not invalidate rankings",
			logger.ErrorField(err),
			logger.String("run_id", result.RunID),
		)
	}

	return finish(nil)
}

func (s *Scheduler) refreshItem(ctx context.Context, itemID string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if errors.Is(err, models.ErrItemNotFound) {
		// Unpublished or deleted between the query and now
		return nil
	}
	if err != nil {
		return err
	}

	score := s.engine.Score(item.VoteCount, item.CommentCount, item.ReactionCount, item.CreatedAt, time.Now())
	return s.store.PersistScore(ctx, itemID, score)
}
