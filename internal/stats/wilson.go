package stats

import "math"

// WilsonInterval calculates the Wilson score interval for a conversion
// proportion. Both bounds are 0 when there are no trials.
func WilsonInterval(successes, trials int64, confidence float64) (lower, upper float64) {
	if trials <= 0 {
		return 0, 0
	}
	if successes > trials {
		successes = trials
	}

	z := ZScore(confidence)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	return math.Max(0, center-spread), math.Min(1, center+spread)
}

// ZScore returns the two-sided z-score for the common confidence levels.
// Anything below 0.90 is treated as 0.90.
func ZScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	default:
		return 1.645
	}
}
