package stats

import "math"

// SignificanceTest performs a two-proportion z-test and returns the
// confidence (0-1) that proportion A is higher than proportion B.
// Without data on both sides it returns 0.5.
func SignificanceTest(aConv, aViews, bConv, bViews int64) float64 {
	if aViews <= 0 || bViews <= 0 {
		return 0.5
	}

	pA := float64(aConv) / float64(aViews)
	pB := float64(bConv) / float64(bViews)
	pooled := float64(aConv+bConv) / float64(aViews+bViews)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aViews) + 1/float64(bViews)))
	if se == 0 {
		switch {
		case pA > pB:
			return 1
		case pA < pB:
			return 0
		}
		return 0.5
	}

	return normalCDF((pA - pB) / se)
}

// normalCDF approximates the standard normal CDF
// (Abramowitz and Stegun, formula 7.1.26).
func normalCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}
