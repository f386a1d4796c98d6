// Package scoring implements the trending score function: logarithmic vote
// scaling plus weighted comment/reaction signals, minus a super-linear age
// penalty. The functions are pure and deterministic; callers supply the
// clock.
package scoring

import (
	"math"
	"time"
)

// Weights holds the tunable constants of the score function
type Weights struct {
	CommentWeight  float64
	ReactionWeight float64
	GravityHours   float64
	DecayExponent  float64
}

// DefaultWeights returns the production defaults
func DefaultWeights() Weights {
	return Weights{
		CommentWeight:  2.0,
		ReactionWeight: 0.5,
		GravityHours:   12.0,
		DecayExponent:  1.8,
	}
}

// Engine computes trending scores with a fixed set of weights
type Engine struct {
	weights Weights
}

// NewEngine creates a score engine
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Weights returns the engine's weights
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the trending score for an item's engagement counters at
// time now.
//
// The vote term uses the absolute value of the vote count: a heavily
// downvoted item scores the same on that term as an equally upvoted one.
// This treats large negative totals as a sign of activity and is intentional,
// not a bug to fix.
//
// Old items can score negative. Ordering is what matters downstream, so the
// result is never clamped.
func (e *Engine) Score(voteCount, commentCount, reactionCount int, createdAt, now time.Time) float64 {
	voteTerm := math.Log10(math.Max(1, math.Abs(float64(voteCount))))
	commentTerm := e.weights.CommentWeight * float64(commentCount)
	reactionTerm := e.weights.ReactionWeight * float64(reactionCount)

	ageHours := math.Max(0, now.Sub(createdAt).Hours())
	agePenalty := math.Pow(ageHours/e.weights.GravityHours, e.weights.DecayExponent)

	return voteTerm + commentTerm + reactionTerm - agePenalty
}

// Velocity computes votes per hour with a one-hour floor on the age, so an
// item created seconds ago does not blow up the division.
func (e *Engine) Velocity(voteCount int, createdAt, now time.Time) float64 {
	ageHours := math.Max(0, now.Sub(createdAt).Hours())
	return float64(voteCount) / math.Max(1, ageHours)
}
