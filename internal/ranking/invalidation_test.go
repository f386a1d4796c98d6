package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pkozlov/trendrank/internal/cache"
	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/internal/store"
)

func newTestCoordinator(itemStore *store.MockItemStore, backend *cache.MockBackend) *Coordinator {
	engine := scoring.NewEngine(scoring.DefaultWeights())
	return NewCoordinator(backend, itemStore, engine, backend)
}

func TestCoordinator_InvalidateAllRankings_ForcesStoreRequery(t *testing.T) {
	itemStore := store.NewMockItemStore()
	backend := cache.NewMockBackend()
	service := newTestService(itemStore, backend)
	coordinator := newTestCoordinator(itemStore, backend)
	ctx := context.Background()
	now := time.Now()

	itemStore.AddItem(&models.RankedItem{ID: "post-1", VoteCount: 2, CreatedAt: now})

	// Warm two scopes
	if _, err := service.GetTopRanked(ctx, models.Scope{}, 10); err != nil {
		t.Fatalf("GetTopRanked() error = %v", err)
	}
	if _, err := service.GetTopRanked(ctx, models.Scope{Category: "golang"}, 10); err != nil {
		t.Fatalf("GetTopRanked() error = %v", err)
	}
	queriesBeforeInvalidation := itemStore.TopQueryCalls

	deleted, err := coordinator.InvalidateAllRankings(ctx)
	if err != nil {
		t.Fatalf("InvalidateAllRankings() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("InvalidateAllRankings() deleted %d keys, want 2", deleted)
	}

	// Both scopes must miss and hit the store again
	service.GetTopRanked(ctx, models.Scope{}, 10)
	service.GetTopRanked(ctx, models.Scope{Category: "golang"}, 10)
	if itemStore.TopQueryCalls != queriesBeforeInvalidation+2 {
		t.Errorf("store queried %d times after invalidation, want %d",
			itemStore.TopQueryCalls, queriesBeforeInvalidation+2)
	}
}

func TestCoordinator_InvalidateItem_LeavesRankingListsAlone(t *testing.T) {
	itemStore := store.NewMockItemStore()
	backend := cache.NewMockBackend()
	service := newTestService(itemStore, backend)
	coordinator := newTestCoordinator(itemStore, backend)
	ctx := context.Background()

	itemStore.AddItem(&models.RankedItem{ID: "post-1", VoteCount: 2, CreatedAt: time.Now()})

	service.GetTopRanked(ctx, models.Scope{}, 10)
	service.GetItem(ctx, "post-1")

	if err := coordinator.InvalidateItem(ctx, "post-1"); err != nil {
		t.Fatalf("InvalidateItem() error = %v", err)
	}

	if backend.Has(models.ItemCacheKey("post-1")) {
		t.Error("item cache entry survived InvalidateItem")
	}
	if !backend.Has(models.RankingCacheKey(models.Scope{}, 10)) {
		t.Error("InvalidateItem dropped a ranking list; only the item entry should go")
	}
}

func TestCoordinator_OnScoreMutation_PersistsScoreAndInvalidates(t *testing.T) {
	itemStore := store.NewMockItemStore()
	backend := cache.NewMockBackend()
	service := newTestService(itemStore, backend)
	coordinator := newTestCoordinator(itemStore, backend)
	ctx := context.Background()

	itemStore.AddItem(&models.RankedItem{ID: "post-1", VoteCount: 100, CommentCount: 4, CreatedAt: time.Now()})
	service.GetTopRanked(ctx, models.Scope{}, 10)

	if err := coordinator.OnScoreMutation(ctx, "post-1"); err != nil {
		t.Fatalf("OnScoreMutation() error = %v", err)
	}

	item, _ := itemStore.Item("post-1")
	if item.Score == 0 {
		t.Error("OnScoreMutation did not persist a recomputed score")
	}
	if backend.Has(models.RankingCacheKey(models.Scope{}, 10)) {
		t.Error("ranking list survived OnScoreMutation")
	}

	// Mutation event published for the refresher
	if len(backend.Published) != 1 {
		t.Fatalf("published %d events, want 1", len(backend.Published))
	}
	var event MutationEvent
	if err := json.Unmarshal([]byte(backend.Published[0].Payload), &event); err != nil {
		t.Fatalf("failed to decode mutation event: %v", err)
	}
	if event.ItemID != "post-1" {
		t.Errorf("event item_id = %q, want post-1", event.ItemID)
	}
}

func TestCoordinator_OnScoreMutation_UnknownItem(t *testing.T) {
	coordinator := newTestCoordinator(store.NewMockItemStore(), cache.NewMockBackend())

	err := coordinator.OnScoreMutation(context.Background(), "missing")
	if !errors.Is(err, models.ErrItemNotFound) {
		t.Errorf("OnScoreMutation(missing) error = %v, want ErrItemNotFound", err)
	}
}

func TestCoordinator_OnScoreMutation_CacheFailureIsNotFatal(t *testing.T) {
	itemStore := store.NewMockItemStore()
	backend := cache.NewMockBackend()
	backend.DeleteErr = errors.New("connection refused")
	backend.PatternErr = errors.New("connection refused")
	coordinator := newTestCoordinator(itemStore, backend)

	itemStore.AddItem(&models.RankedItem{ID: "post-1", VoteCount: 1, CreatedAt: time.Now()})

	if err := coordinator.OnScoreMutation(context.Background(), "post-1"); err != nil {
		t.Errorf("OnScoreMutation() with broken cache error = %v, want nil (fail open)", err)
	}
}

func TestCoordinator_OnScoreMutation_StoreFailurePropagates(t *testing.T) {
	itemStore := store.NewMockItemStore()
	itemStore.PersistErr = errors.New("pq: connection reset")
	coordinator := newTestCoordinator(itemStore, cache.NewMockBackend())

	itemStore.AddItem(&models.RankedItem{ID: "post-1", VoteCount: 1, CreatedAt: time.Now()})

	if err := coordinator.OnScoreMutation(context.Background(), "post-1"); err == nil {
		t.Error("OnScoreMutation() with broken store returned nil, want error")
	}
}
