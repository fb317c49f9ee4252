package engine

import (
	"math"
	"testing"

	"github.com/fentz26/focal/internal/model"
)

func TestDecayedCredits(t *testing.T) {
	const halfLife = int64(CreditsHalfLifeMillis)

	if got := DecayedCredits(100, testNow, testNow); got != 100 {
		t.Errorf("No elapsed time should not decay, got %v", got)
	}
	if got := DecayedCredits(100, testNow, testNow+halfLife); math.Abs(got-50) > 1e-9 {
		t.Errorf("One half-life should halve credits, got %v", got)
	}
	if got := DecayedCredits(100, testNow, testNow+2*halfLife); math.Abs(got-25) > 1e-9 {
		t.Errorf("Two half-lives should quarter credits, got %v", got)
	}
	if got := DecayedCredits(100, testNow+halfLife, testNow); got != 100 {
		t.Errorf("Future timestamps should not decay, got %v", got)
	}
	if got := DecayedCredits(0, 0, testNow); got != 0 {
		t.Errorf("Zero credits should stay zero, got %v", got)
	}

	// Strictly monotonic over time.
	prev := math.Inf(1)
	for i := int64(0); i < 10; i++ {
		cur := DecayedCredits(100, testNow, testNow+i*halfLife/3)
		if cur > prev {
			t.Fatalf("Decay is not monotonic: %v after %v", cur, prev)
		}
		prev = cur
	}
}

func TestFeedbackMetricsNoDesired(t *testing.T) {
	m := computeFeedbackMetrics(0, 0, feedbackTotals{})
	if m.factor != 1.0 || m.deviationRatio != 1.0 {
		t.Errorf("Zero desired credits should neutralize feedback, got %+v", m)
	}
}

func TestFeedbackMetricsBalanced(t *testing.T) {
	totals := feedbackTotals{totalDesired: 2, totalEffective: 10}
	m := computeFeedbackMetrics(1, 5, totals)
	if math.Abs(m.factor-1.0) > 1e-9 {
		t.Errorf("Goal at its target share should get factor 1, got %v", m.factor)
	}
}

func TestFeedbackMetricsStarvedGoalBoosted(t *testing.T) {
	totals := feedbackTotals{totalDesired: 2, totalEffective: 10}
	starved := computeFeedbackMetrics(1, 1, totals)
	served := computeFeedbackMetrics(1, 9, totals)

	if starved.factor <= 1.0 {
		t.Errorf("Starved goal factor = %v, want > 1", starved.factor)
	}
	if served.factor >= 1.0 {
		t.Errorf("Over-served goal factor = %v, want < 1", served.factor)
	}
	// target 0.5, actual 0.1 -> deviation 5 -> factor 25.
	if math.Abs(starved.factor-25.0) > 1e-9 {
		t.Errorf("Starved goal factor = %v, want 25", starved.factor)
	}
}

func TestFeedbackDeviationCapped(t *testing.T) {
	totals := feedbackTotals{totalDesired: 1, totalEffective: 0}
	m := computeFeedbackMetrics(1, 0, totals)
	if m.deviationRatio > FeedbackDeviationCap {
		t.Errorf("Deviation ratio %v exceeds cap", m.deviationRatio)
	}
	if m.factor > math.Pow(FeedbackDeviationCap, FeedbackSensitivity) {
		t.Errorf("Factor %v exceeds the capped maximum", m.factor)
	}
}

func TestCreditsAggregateIntoRoot(t *testing.T) {
	snap := snapshot(
		newTask("goal", func(x *model.Task) { x.Credits = 1 }),
		newTask("sub", func(x *model.Task) { x.ParentID = "goal"; x.Credits = 2 }),
		newTask("leaf", func(x *model.Task) { x.ParentID = "sub"; x.Credits = 4 }),
	)
	res := Prioritize(snap, Options{Now: testNow, IncludeHidden: true})
	byID := index(res)

	if got := byID["goal"].EffectiveCredits; math.Abs(got-7) > 1e-9 {
		t.Errorf("Root effective credits = %v, want subtree total 7", got)
	}
	if got := byID["sub"].EffectiveCredits; math.Abs(got-6) > 1e-9 {
		t.Errorf("Mid effective credits = %v, want 6", got)
	}
}

func TestFeedbackShiftsOrderBetweenGoals(t *testing.T) {
	// Both goals want an even split; all recent effort went to "work",
	// so "health" should outrank it.
	snap := snapshot(
		newTask("work-goal", func(x *model.Task) { x.Credits = 10 }),
		newTask("health-goal", nil),
		newTask("work", func(x *model.Task) { x.ParentID = "work-goal" }),
		newTask("health", func(x *model.Task) { x.ParentID = "health-goal" }),
	)
	res := Prioritize(snap, Options{Now: testNow})
	got := order(res)

	if len(got) < 2 {
		t.Fatalf("Expected both leaves on the list, got %v", got)
	}
	if got[0] != "health" {
		t.Fatalf("Starved goal's task should rank first, got %v", got)
	}
}
