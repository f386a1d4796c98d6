package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/scoring"
)

// MockItemStore is an in-memory implementation of ItemStore for testing.
// Call counters allow tests to verify cache hit/miss behavior.
// Exported for use in other packages.
type MockItemStore struct {
	mu      sync.Mutex
	items   map[string]*models.RankedItem
	mutated map[string]time.Time

	GetErr       error
	QueryErr     error
	RecentErr    error
	PersistErr   error
	RecomputeErr error

	GetCalls       int
	TopQueryCalls  int
	RecentCalls    int
	PersistCalls   int
	RecomputeCalls int
}

// NewMockItemStore creates a new mock item store
func NewMockItemStore() *MockItemStore {
	return &MockItemStore{
		items:   make(map[string]*models.RankedItem),
		mutated: make(map[string]time.Time),
	}
}

// AddItem seeds an item and records it as mutated now
func (m *MockItemStore) AddItem(item *models.RankedItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *item
	m.items[item.ID] = &copied
	m.mutated[item.ID] = time.Now()
}

// MarkMutated records a mutation time for an item
func (m *MockItemStore) MarkMutated(itemID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutated[itemID] = at
}

// Item returns a copy of a seeded item
func (m *MockItemStore) Item(itemID string) (models.RankedItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, exists := m.items[itemID]
	if !exists {
		return models.RankedItem{}, false
	}
	return *item, true
}

func (m *MockItemStore) GetItem(ctx context.Context, itemID string) (*models.RankedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	item, exists := m.items[itemID]
	if !exists {
		return nil, models.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *MockItemStore) QueryTopByEngagement(ctx context.Context, scope models.Scope, limit int) ([]models.RankedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TopQueryCalls++

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	result := make([]models.RankedItem, 0, len(m.items))
	for _, item := range m.items {
		if scope.Category != "" && item.Category != scope.Category {
			continue
		}
		result = append(result, *item)
	}

	// Proxy sort: vote count descending, then recency
	sort.Slice(result, func(i, j int) bool {
		if result[i].VoteCount != result[j].VoteCount {
			return result[i].VoteCount > result[j].VoteCount
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockItemStore) QueryRecentlyMutated(ctx context.Context, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecentCalls++

	if m.RecentErr != nil {
		return nil, m.RecentErr
	}

	var ids []string
	for id, at := range m.mutated {
		if !at.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockItemStore) PersistScore(ctx context.Context, itemID string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistCalls++

	if m.PersistErr != nil {
		return m.PersistErr
	}
	item, exists := m.items[itemID]
	if !exists {
		return models.ErrItemNotFound
	}
	item.Score = score
	return nil
}

func (m *MockItemStore) RecomputeAllScores(ctx context.Context, weights scoring.Weights) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecomputeCalls++

	if m.RecomputeErr != nil {
		return 0, m.RecomputeErr
	}

	engine := scoring.NewEngine(weights)
	now := time.Now()
	for _, item := range m.items {
		item.Score = engine.Score(item.VoteCount, item.CommentCount, item.ReactionCount, item.CreatedAt, now)
	}
	return int64(len(m.items)), nil
}

// RecomputeCallCount returns the bulk recompute call count under the lock,
// for tests that poll concurrently
func (m *MockItemStore) RecomputeCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RecomputeCalls
}

func (m *MockItemStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MockItemStore) Close() error {
	return nil
}
