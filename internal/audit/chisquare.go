package audit

import (
	"math"

	"github.com/xtding233/gacha-forge/internal/gacha"
)

// MinExpected is the smallest expected count a tier needs to enter the statistic.
const MinExpected = 5.0

const (
	gammaEps     = 1e-15
	gammaFPMin   = 1e-300
	gammaMaxIter = 1000
)

// ExpectedCounts returns draws * probs[t] for every tier.
func ExpectedCounts(draws int, probs gacha.Table) gacha.Table {
	var out gacha.Table
	for i, p := range probs {
		out[i] = float64(draws) * p
	}
	return out
}

// ChiSquare sums (O-E)^2/E over tiers whose expected count is at least
// MinExpected. dof is the number of included tiers minus one.
func ChiSquare(observed [gacha.NumTiers]int, expected gacha.Table) (chi2 float64, dof int) {
	n := 0
	for i, e := range expected {
		if e < MinExpected {
			continue
		}
		d := float64(observed[i]) - e
		chi2 += d * d / e
		n++
	}
	return chi2, n - 1
}

// PValue is the upper tail 1 - P(dof/2, chi2/2) of the chi-square distribution.
// It is NaN when dof <= 0.
func PValue(chi2 float64, dof int) float64 {
	if dof <= 0 || math.IsNaN(chi2) {
		return math.NaN()
	}
	if chi2 <= 0 {
		return 1
	}
	return gammaQ(float64(dof)/2, chi2/2)
}

// gammaQ is the regularized upper incomplete gamma function Q(a, x) = 1 - P(a, x).
func gammaQ(a, x float64) float64 {
	if x < a+1 {
		return 1 - gammaSeries(a, x)
	}
	return gammaContinuedFraction(a, x)
}

// gammaSeries computes P(a, x) by its power series; converges fast for x < a+1.
func gammaSeries(a, x float64) float64 {
	if x <= 0 {
		return 0
	}
	ap := a
	del := 1 / a
	sum := del
	for range gammaMaxIter {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*gammaEps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lnGamma(a))
}

// gammaContinuedFraction computes Q(a, x) with the modified Lentz method.
func gammaContinuedFraction(a, x float64) float64 {
	b := x + 1 - a
	c := 1 / gammaFPMin
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < gammaFPMin {
			d = gammaFPMin
		}
		c = b + an/c
		if math.Abs(c) < gammaFPMin {
			c = gammaFPMin
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lnGamma(a)) * h
}

var lanczosCoef = [14]float64{
	57.1562356658629235, -59.5979603554754912,
	14.1360979747417471, -0.491913816097620199,
	.339946499848118887e-4, .465236289270485756e-4,
	-.983744753048795646e-4, .158088703224912494e-3,
	-.210264441724104883e-3, .217439618115212643e-3,
	-.164318106536763890e-3, .844182239838527433e-4,
	-.261908384015814087e-4, .368991826595316234e-5,
}

// lnGamma is ln(Γ(z)) for z > 0 via a 14-term Lanczos approximation.
func lnGamma(z float64) float64 {
	y := z
	tmp := z + 5.24218750000000000
	tmp = (z+0.5)*math.Log(tmp) - tmp
	ser := 0.999999999999997092
	for _, c := range lanczosCoef {
		y++
		ser += c / y
	}
	return tmp + math.Log(2.5066282746310005*ser/z)
}
