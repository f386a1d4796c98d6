package models

import "fmt"

const (
	// rankingKeyPrefix namespaces all cached ranking lists. Pattern
	// invalidation of the whole namespace relies on this prefix.
	rankingKeyPrefix = "ranking"

	// itemKeyPrefix namespaces per-item cache entries
	itemKeyPrefix = "item"

	// RankingKeyPattern matches every cached ranking list regardless of scope
	RankingKeyPattern = rankingKeyPrefix + ":*"

	// globalCategory is the key segment for the unscoped ranking
	globalCategory = "all"
)

// RankingCacheKey builds the cache key for a ranking list. Identical scope
// parameters always produce identical keys; cache correctness depends on it.
func RankingCacheKey(scope Scope, limit int) string {
	category := scope.Category
	if category == "" {
		category = globalCategory
	}
	return fmt.Sprintf("%s:list:%s:%d", rankingKeyPrefix, category, limit)
}

// ItemCacheKey builds the cache key for a single item entry
func ItemCacheKey(itemID string) string {
	return fmt.Sprintf("%s:%s", itemKeyPrefix, itemID)
}
