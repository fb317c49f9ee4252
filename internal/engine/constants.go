package engine

const (
	// CreditsHalfLifeMillis is the half-life of accumulated effort credits
	// (7 days).
	CreditsHalfLifeMillis = 7.0 * 24.0 * 60.0 * 60.0 * 1000.0

	// FeedbackSensitivity is the exponent applied to the deviation ratio.
	FeedbackSensitivity = 2.0

	// FeedbackEpsilon guards the thermostat divisions against zero.
	FeedbackEpsilon = 0.001

	// FeedbackDeviationCap bounds the deviation ratio so a goal with
	// near-zero effort cannot spike to an unbounded factor.
	FeedbackDeviationCap = 1000.0

	// MinPriority is the score below which a task is dropped from the Do
	// list.
	MinPriority = 0.001

	// priorityEpsilon is the tolerance used when comparing scores during
	// sorting.
	priorityEpsilon = 0.000001

	// maxTreeDepth bounds recursive traversal. The store refuses trees
	// deeper than 20 levels; this is a last-resort guard for corrupt
	// snapshots, not a product limit.
	maxTreeDepth = 64
)
