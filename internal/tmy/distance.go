package tmy

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// zScore measures how far a candidate profile's mean sits from the long-term
// mean, scaled by the combined spread:
//
//	-(mean(total) - mean(candidate)) / sqrt(var(total) + var(candidate))
//
// Variances are population variances. Near zero means typical; large positive
// means the candidate is warmer than the long-term distribution.
func zScore(total, candidate Profile) float64 {
	a, b := total[:], candidate[:]
	top := stat.Mean(a, nil) - stat.Mean(b, nil)
	bottom := math.Sqrt(stat.PopVariance(a, nil) + stat.PopVariance(b, nil))
	return -(top / bottom)
}

// alternative is the KS test's directional hypothesis.
type alternative int

const (
	twoSided alternative = iota
	greater
	less
)

func alternativeFor(target Target) alternative {
	switch target {
	case TargetExtremeWarm:
		return greater
	case TargetExtremeCold:
		return less
	default:
		return twoSided
	}
}

// ksStatistic computes the two-sample Kolmogorov–Smirnov statistic between
// the two profiles. The directional variants take the one-sided supremum:
// greater is sup(F_total − F_candidate), less is sup(F_candidate − F_total),
// two-sided is the larger of the two.
func ksStatistic(total, candidate Profile, alt alternative) float64 {
	x := sortedCopy(total)
	y := sortedCopy(candidate)

	var dPlus, dMinus float64
	for _, pts := range [][]float64{x, y} {
		for _, v := range pts {
			fx := ecdf(x, v)
			fy := ecdf(y, v)
			dPlus = math.Max(dPlus, fx-fy)
			dMinus = math.Max(dMinus, fy-fx)
		}
	}

	switch alt {
	case greater:
		return dPlus
	case less:
		return dMinus
	default:
		return math.Max(dPlus, dMinus)
	}
}

// ecdf returns the fraction of sorted sample points <= v.
func ecdf(sorted []float64, v float64) float64 {
	n := sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
	return float64(n) / float64(len(sorted))
}

func sortedCopy(p Profile) []float64 {
	out := make([]float64, len(p))
	copy(out, p[:])
	sort.Float64s(out)
	return out
}
