package store

import (
	"context"
	"time"

	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/scoring"
)

// ItemStore defines the query interface over the durable store. The store
// owns the authoritative counters; this engine only reads them and writes
// back derived scores.
type ItemStore interface {
	// GetItem retrieves a single published item by ID. Returns
	// models.ErrItemNotFound if it does not exist.
	GetItem(ctx context.Context, itemID string) (*models.RankedItem, error)

	// QueryTopByEngagement retrieves the top published items for a scope,
	// ordered by the store-side proxy sort (vote count, then recency). The
	// proxy order bounds the candidate set; callers re-sort by score.
	QueryTopByEngagement(ctx context.Context, scope models.Scope, limit int) ([]models.RankedItem, error)

	// QueryRecentlyMutated retrieves IDs of items mutated since the given time
	QueryRecentlyMutated(ctx context.Context, since time.Time) ([]string, error)

	// PersistScore writes a recomputed score back to the store so proxy
	// queries and other consumers see it
	PersistScore(ctx context.Context, itemID string, score float64) error

	// RecomputeAllScores recomputes and stores scores for every published
	// item in a single bulk operation, returning the number of rows updated
	RecomputeAllScores(ctx context.Context, weights scoring.Weights) (int64, error)

	// Ping checks store connectivity
	Ping(ctx context.Context) error

	// Close closes the store connection
	Close() error
}
