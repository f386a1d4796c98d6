package scoring

import (
	"math"
	"testing"
	"time"
)

func TestEngine_Score_CommentMonotonicity(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()
	createdAt := now.Add(-2 * time.Hour)

	prev := engine.Score(10, 0, 3, createdAt, now)
	for comments := 1; comments <= 50; comments++ {
		score := engine.Score(10, comments, 3, createdAt, now)
		if score <= prev {
			t.Fatalf("Score with %d comments = %f, want > %f", comments, score, prev)
		}
		prev = score
	}
}

func TestEngine_Score_VoteSignSymmetry(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()
	createdAt := now.Add(-1 * time.Hour)

	for _, votes := range []int{1, 10, 250, 100000} {
		up := engine.Score(votes, 0, 0, createdAt, now)
		down := engine.Score(-votes, 0, 0, createdAt, now)
		if up != down {
			t.Errorf("Score(%d) = %f, Score(%d) = %f, want equal (vote term uses magnitude)", votes, up, -votes, down)
		}
	}
}

func TestEngine_Score_ZeroVotesStillFinite(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	score := engine.Score(0, 5, 4, now, now)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		t.Fatalf("Score with zero votes = %f, want finite", score)
	}
	// Driven entirely by comments and reactions: 2.0*5 + 0.5*4
	if score != 12.0 {
		t.Errorf("Score = %f, want 12.0", score)
	}
}

func TestEngine_Score_AgeDecayStrictlyDecreasing(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	prev := engine.Score(100, 10, 5, now.Add(-1*time.Hour), now)
	for hours := 2; hours <= 96; hours++ {
		score := engine.Score(100, 10, 5, now.Add(-time.Duration(hours)*time.Hour), now)
		if score >= prev {
			t.Fatalf("Score at age %dh = %f, want < %f", hours, score, prev)
		}
		prev = score
	}
}

func TestEngine_Score_FutureCreatedAtClampedToZeroAge(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	// Clock skew can put createdAt slightly in the future; the age penalty
	// must clamp at zero rather than go negative.
	future := engine.Score(10, 0, 0, now.Add(5*time.Minute), now)
	fresh := engine.Score(10, 0, 0, now, now)
	if future != fresh {
		t.Errorf("Score with future createdAt = %f, want %f", future, fresh)
	}
}

func TestEngine_Score_OldItemsCanGoNegative(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	score := engine.Score(1, 0, 0, now.Add(-30*24*time.Hour), now)
	if score >= 0 {
		t.Errorf("Score for month-old item with no engagement = %f, want negative (no clamping)", score)
	}
}

func TestEngine_Velocity_NoBlowupNearZeroAge(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	v := engine.Velocity(42, now, now)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("Velocity at age 0 = %f, want finite", v)
	}
	if v <= 0 {
		t.Errorf("Velocity = %f, want positive", v)
	}
	// One-hour floor: 42 votes at age 0 is 42 votes/hour
	if v != 42.0 {
		t.Errorf("Velocity = %f, want 42.0", v)
	}
}

func TestEngine_Velocity_UsesActualAgeBeyondFloor(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	v := engine.Velocity(40, now.Add(-4*time.Hour), now)
	if v != 10.0 {
		t.Errorf("Velocity = %f, want 10.0", v)
	}
}

func TestEngine_Score_WeightedScenario(t *testing.T) {
	// Item A: 10 votes, nothing else. Item B: 5 comments, nothing else.
	// With default weights B (2.0*5 = 10) must outrank A (log10(10) = 1).
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	scoreA := engine.Score(10, 0, 0, now, now)
	scoreB := engine.Score(0, 5, 0, now, now)
	if scoreB <= scoreA {
		t.Errorf("comment-heavy item score = %f, vote-heavy = %f, want comment-heavy higher", scoreB, scoreA)
	}
}
