package engine

// Fixed-pie redistribution of balance targets. Adjusting one goal's
// share resizes every other goal so the shares keep summing to 1.

const (
	// MinPercentage is the floor for any goal's share of the pie.
	MinPercentage = 0.01
	// MaxPercentage is the ceiling for any goal's share of the pie.
	MaxPercentage = 0.99
)

// RedistributePercentages sets targetID's share to newValue, clamped to
// [MinPercentage, MaxPercentage], and scales the remaining goals so the
// total stays 1.0. Other goals keep their relative proportions; if they
// previously summed to zero the remainder is split evenly.
func RedistributePercentages(current map[string]float64, targetID string, newValue float64) map[string]float64 {
	result := make(map[string]float64, len(current))
	for id, v := range current {
		result[id] = v
	}

	if newValue < MinPercentage {
		newValue = MinPercentage
	}
	if newValue > MaxPercentage {
		newValue = MaxPercentage
	}

	if len(current) <= 1 {
		result[targetID] = 1.0
		return result
	}

	result[targetID] = newValue
	remaining := 1.0 - newValue

	sumOthers := 0.0
	for id, v := range current {
		if id != targetID {
			sumOthers += v
		}
	}

	if sumOthers <= 0.0001 {
		split := remaining / float64(len(current)-1)
		if split < MinPercentage {
			split = MinPercentage
		}
		for id := range result {
			if id != targetID {
				result[id] = split
			}
		}
		return result
	}

	for id := range result {
		if id != targetID {
			result[id] = (current[id] / sumOthers) * remaining
		}
	}
	return result
}

// ApplyRedistributionToCredits converts percentage shares into absolute
// desired credits, scaled so the average goal holds one credit.
func ApplyRedistributionToCredits(percentages map[string]float64) map[string]float64 {
	total := float64(len(percentages))
	out := make(map[string]float64, len(percentages))
	for id, p := range percentages {
		out[id] = p * total
	}
	return out
}
