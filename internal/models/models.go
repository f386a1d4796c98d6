package models

import (
	"time"
)

// RankedItem is the unit being ranked: a post with its engagement counters.
// The counters are owned by the durable store and mutated by collaborator
// services; this engine only observes them. Score is derived, never
// authoritative.
type RankedItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category,omitempty"`
	VoteCount     int       `json:"vote_count"`
	CommentCount  int       `json:"comment_count"`
	ReactionCount int       `json:"reaction_count"`
	CreatedAt     time.Time `json:"created_at"`
	Score         float64   `json:"score"`
}

// Validate validates a RankedItem
func (i *RankedItem) Validate() error {
	if i.ID == "" {
		return ErrInvalidItemID
	}
	if i.CreatedAt.IsZero() {
		return ErrInvalidTimestamp
	}
	if i.CommentCount < 0 || i.ReactionCount < 0 {
		return ErrInvalidCounter
	}
	return nil
}

// Scope defines the parameters of a distinct cacheable ranking list.
// An empty Category means the global (unscoped) ranking.
type Scope struct {
	Category string `json:"category,omitempty"`
}

// RankingSnapshot is an ordered top-N ranking at a point in time. Snapshots
// are always replaced wholesale, never patched in place.
type RankingSnapshot struct {
	Scope       Scope        `json:"scope"`
	Limit       int          `json:"limit"`
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []RankedItem `json:"items"`
}
