package models

import (
	"errors"
	"path"
	"testing"
	"time"
)

func TestRankedItem_Validate(t *testing.T) {
	valid := RankedItem{ID: "post-1", CreatedAt: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid item = %v", err)
	}

	tests := []struct {
		name    string
		item    RankedItem
		wantErr error
	}{
		{"missing id", RankedItem{CreatedAt: time.Now()}, ErrInvalidItemID},
		{"zero timestamp", RankedItem{ID: "post-1"}, ErrInvalidTimestamp},
		{"negative comments", RankedItem{ID: "post-1", CreatedAt: time.Now(), CommentCount: -1}, ErrInvalidCounter},
		{"negative reactions", RankedItem{ID: "post-1", CreatedAt: time.Now(), ReactionCount: -3}, ErrInvalidCounter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.item.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRankedItem_Validate_NegativeVotesAllowed(t *testing.T) {
	// Downvote-heavy posts are legitimate; only comment and reaction
	// counters are strictly non-negative.
	item := RankedItem{ID: "post-1", CreatedAt: time.Now(), VoteCount: -50}
	if err := item.Validate(); err != nil {
		t.Errorf("Validate() with negative votes = %v, want nil", err)
	}
}

func TestRankingCacheKey_Deterministic(t *testing.T) {
	a := RankingCacheKey(Scope{Category: "golang"}, 25)
	b := RankingCacheKey(Scope{Category: "golang"}, 25)
	if a != b {
		t.Errorf("identical scopes produced different keys: %q vs %q", a, b)
	}
	if a != "ranking:list:golang:25" {
		t.Errorf("key = %q, want ranking:list:golang:25", a)
	}
}

func TestRankingCacheKey_GlobalScope(t *testing.T) {
	key := RankingCacheKey(Scope{}, 20)
	if key != "ranking:list:all:20" {
		t.Errorf("key = %q, want ranking:list:all:20", key)
	}
}

func TestRankingCacheKey_DistinctScopes(t *testing.T) {
	keys := map[string]bool{
		RankingCacheKey(Scope{}, 20):                   true,
		RankingCacheKey(Scope{}, 50):                   true,
		RankingCacheKey(Scope{Category: "golang"}, 20): true,
		RankingCacheKey(Scope{Category: "rust"}, 20):   true,
	}
	if len(keys) != 4 {
		t.Errorf("expected 4 distinct keys, got %d", len(keys))
	}
}

func TestKeyNamespaces(t *testing.T) {
	listKey := RankingCacheKey(Scope{Category: "golang"}, 20)
	itemKey := ItemCacheKey("golang")

	match, err := path.Match(RankingKeyPattern, listKey)
	if err != nil || !match {
		t.Errorf("pattern %q should match list key %q", RankingKeyPattern, listKey)
	}
	match, err = path.Match(RankingKeyPattern, itemKey)
	if err != nil || match {
		t.Errorf("pattern %q must not match item key %q", RankingKeyPattern, itemKey)
	}
}
