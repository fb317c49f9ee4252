package engine

import "math"

// DecayedCredits returns the value of credits earned at earnedAt as
// observed at now, after exponential half-life decay. Credits with a
// timestamp in the future are returned undecayed.
func DecayedCredits(credits float64, earnedAt, now int64) float64 {
	if credits == 0 {
		return 0
	}
	elapsed := now - earnedAt
	if elapsed <= 0 {
		return credits
	}
	return credits * math.Pow(0.5, float64(elapsed)/CreditsHalfLifeMillis)
}
