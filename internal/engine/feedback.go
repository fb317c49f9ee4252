package engine

import "math"

// feedbackTotals aggregates credits across all root goals.
type feedbackTotals struct {
	totalDesired   float64
	totalEffective float64
}

// feedbackComputation holds the intermediate thermostat values for one
// root goal. The trace surfaces these so a user can see why a goal is
// boosted or damped.
type feedbackComputation struct {
	targetPercent  float64
	actualPercent  float64
	deviationRatio float64
	factor         float64
}

func computeFeedbackTotals(f *forest) feedbackTotals {
	var t feedbackTotals
	for _, id := range f.roots {
		root := f.byID[id]
		t.totalDesired += root.task.DesiredCredits
		t.totalEffective += root.effectiveCredits
	}
	return t
}

// computeFeedbackMetrics runs the thermostat for a single root goal.
// The factor is (target share / actual share)^sensitivity, so goals
// starved of effort are boosted quadratically and over-served goals are
// damped. The deviation ratio is capped so a goal with no recorded
// effort cannot drown out everything else.
func computeFeedbackMetrics(desired, effective float64, totals feedbackTotals) feedbackComputation {
	if totals.totalDesired == 0 {
		return feedbackComputation{deviationRatio: 1.0, factor: 1.0}
	}

	target := desired / totals.totalDesired
	denom := math.Max(totals.totalEffective, FeedbackEpsilon*totals.totalDesired)
	actual := effective / denom

	deviation := 1.0
	if target != 0 {
		deviation = target / math.Max(actual, FeedbackEpsilon)
	}
	deviation = math.Min(deviation, FeedbackDeviationCap)

	return feedbackComputation{
		targetPercent:  target,
		actualPercent:  actual,
		deviationRatio: deviation,
		factor:         math.Pow(deviation, FeedbackSensitivity),
	}
}

// applyFeedback assigns each root its thermostat factor. Non-root tasks
// read the factor from their root during traversal.
func applyFeedback(f *forest) {
	totals := computeFeedbackTotals(f)
	for _, id := range f.roots {
		root := f.byID[id]
		root.feedbackFactor = computeFeedbackMetrics(root.task.DesiredCredits, root.effectiveCredits, totals).factor
	}
}

// aggregateCredits folds each subtree's decayed credits into its root,
// bottom-up, so a root goal's effective credits reflect all effort
// recorded anywhere beneath it.
func aggregateCredits(f *forest, id string) float64 {
	e, ok := f.byID[id]
	if !ok {
		return 0
	}
	total := e.effectiveCredits
	for _, child := range e.children {
		total += aggregateCredits(f, child)
	}
	e.effectiveCredits = total
	return total
}
