package stats

import (
	"math"
	"sort"
)

// ProfitFactorCap is reported as the profit factor when there are profits but no losses.
const ProfitFactorCap = 999

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sanitize maps NaN and infinities to zero so snapshots always serialize.
func sanitize(v float64) float64 {
	if !finite(v) {
		return 0
	}

	return v
}

func round2(v float64) float64 {
	return sanitize(math.Round(sanitize(v)*100) / 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, sanitize(v)))
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}

	return sanitize(num / den)
}

func profitFactor(grossWin, grossLoss float64) float64 {
	switch {
	case grossLoss == 0 && grossWin > 0:
		return ProfitFactorCap
	case grossLoss == 0:
		return 0
	default:
		return grossWin / grossLoss
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

// populationStdDev divides by n.
func populationStdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}

	return math.Sqrt(sum / float64(len(xs)))
}

// sampleStdDev divides by n-1.
func sampleStdDev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}

	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}

	return math.Sqrt(sum / float64(len(xs)-1))
}

func sharpe(returns []float64) float64 {
	m := mean(returns)

	return ratio(m, populationStdDev(returns, m))
}

// sortino divides the mean return by the deviation of the returns below the mean.
func sortino(returns []float64) float64 {
	m := mean(returns)

	sum := 0.0
	n := 0

	for _, r := range returns {
		if r < m {
			sum += (r - m) * (r - m)
			n++
		}
	}

	if n == 0 {
		return 0
	}

	return ratio(m, math.Sqrt(sum/float64(n)))
}

// skewness is the adjusted Fisher-Pearson coefficient; it needs at least three values.
func skewness(xs []float64) float64 {
	n := float64(len(xs))
	if len(xs) < 3 {
		return 0
	}

	m := mean(xs)

	s := sampleStdDev(xs, m)
	if s == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range xs {
		z := (x - m) / s
		sum += z * z * z
	}

	return sanitize(n / ((n - 1) * (n - 2)) * sum)
}

// excessKurtosis is the bias-corrected sample excess kurtosis; it needs four values.
func excessKurtosis(xs []float64) float64 {
	n := float64(len(xs))
	if len(xs) < 4 {
		return 0
	}

	m := mean(xs)

	s := sampleStdDev(xs, m)
	if s == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range xs {
		z := (x - m) / s
		sum += z * z * z * z
	}

	front := n * (n + 1) / ((n - 1) * (n - 2) * (n - 3))
	back := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))

	return sanitize(front*sum - back)
}

// kelly returns W - (1-W)/R in percent, where R is average win over average loss.
func kelly(winRate, avgWin, avgLoss float64) float64 {
	if avgLoss == 0 || avgWin == 0 {
		return 0
	}

	w := winRate / 100

	return sanitize((w - (1-w)/(avgWin/avgLoss)) * 100)
}

// valueAtRisk95 is the loss at the empirical 5th percentile (nearest rank), reported
// as a positive amount. A distribution whose 5th percentile is a gain has no VaR.
func valueAtRisk95(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	sorted := make([]float64, len(pnls))
	copy(sorted, pnls)
	sort.Float64s(sorted)

	idx := int(math.Ceil(0.05*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}

	return -math.Min(0, sorted[idx])
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)

	return math.Round(sanitize(v)*p) / p
}
