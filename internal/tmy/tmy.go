// Package tmy constructs a Typical Meteorological Year from a multi-year
// hourly dataset: for every calendar month it selects the historical year
// whose distribution of the chosen variable best (or most extremely) matches
// the long-term distribution, then assembles the selected months into one
// synthetic year.
package tmy

import (
	"fmt"
	"math"
	"sort"

	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// profilePoints is the fixed quantile-profile length: evaluation points
// spread evenly over [0, 1] inclusive.
const profilePoints = 100

// minYearsForConfidence is the smallest year count that yields a
// statistically sound construction. Thinner inputs still build, flagged.
const minYearsForConfidence = 3

// Target selects what the construction aims for.
type Target string

const (
	TargetTypical     Target = "typical"
	TargetExtremeWarm Target = "extreme_warm"
	TargetExtremeCold Target = "extreme_cold"
)

// Metric selects the distributional distance.
type Metric string

const (
	MetricZScore Metric = "zscore"
	MetricKS     Metric = "ks"
)

// Policy is the (target, metric) pair steering selection.
type Policy struct {
	Target Target
	Metric Metric
}

func (p Policy) validate() error {
	switch p.Target {
	case TargetTypical, TargetExtremeWarm, TargetExtremeCold:
	default:
		return &domain.ValidationError{Msg: fmt.Sprintf("unknown target %q", p.Target)}
	}
	switch p.Metric {
	case MetricZScore, MetricKS:
	default:
		return &domain.ValidationError{Msg: fmt.Sprintf("unknown metric %q", p.Metric)}
	}
	return nil
}

// Profile is an ordered 100-point sample of a variable's empirical
// distribution, used as a distribution fingerprint.
type Profile [profilePoints]float64

// Selection maps calendar months to chosen years; index 0 is January.
type Selection [12]int

// Year returns the chosen year for month (1–12).
func (s Selection) Year(month int) int {
	return s[month-1]
}

// Map returns the selection as a month→year map.
func (s Selection) Map() map[int]int {
	m := make(map[int]int, 12)
	for i, y := range s {
		m[i+1] = y
	}
	return m
}

// Result is one construction outcome.
type Result struct {
	Constructed   domain.Dataset
	Selection     Selection
	LowConfidence bool // fewer than 3 distinct years in the input
}

// Construct runs the full five-stage pipeline. It is a pure function of its
// inputs: identical dataset and policy yield an identical result. It either
// succeeds or fails validation before any quantile work.
func Construct(data domain.Dataset, variable string, policy Policy) (Result, error) {
	if err := policy.validate(); err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, &domain.ValidationError{Msg: "dataset is empty"}
	}
	if !data.HasVariable(variable) {
		return Result{}, &domain.ValidationError{Msg: fmt.Sprintf("variable %q not found in data", variable)}
	}
	for m := 1; m <= 12; m++ {
		if !hasMonth(data, m) {
			return Result{}, &domain.ValidationError{Msg: fmt.Sprintf("no records for month %d", m)}
		}
	}

	years := data.Years()

	// Stage 1: long-term profile per month, pooled across every year.
	var total [12]Profile
	for m := 1; m <= 12; m++ {
		prof, ok := monthProfile(data, m, 0, variable)
		if !ok {
			return Result{}, &domain.ValidationError{Msg: fmt.Sprintf("variable %q has no values in month %d", variable, m)}
		}
		total[m-1] = prof
	}

	// Stage 2: candidate profiles per (month, year). A year with no usable
	// data for a month is excluded from that month's ranking only.
	candidates := make([]map[int]Profile, 12)
	for m := 1; m <= 12; m++ {
		candidates[m-1] = make(map[int]Profile)
		for _, y := range years {
			if prof, ok := monthProfile(data, m, y, variable); ok {
				candidates[m-1][y] = prof
			}
		}
	}

	// Stages 3–4: score and select.
	var selection Selection
	for m := 1; m <= 12; m++ {
		year, err := selectYear(total[m-1], candidates[m-1], years, policy, m)
		if err != nil {
			return Result{}, err
		}
		selection[m-1] = year
	}

	// Stage 5: assemble in ascending month order, source order within.
	var constructed domain.Dataset
	for m := 1; m <= 12; m++ {
		constructed = append(constructed, data.MonthYear(m, selection.Year(m))...)
	}

	return Result{
		Constructed:   constructed,
		Selection:     selection,
		LowConfidence: len(years) < minYearsForConfidence,
	}, nil
}

// selectYear ranks candidate years for one month by distance ascending and
// applies the policy's pick rule.
//
// The extreme rules differ by metric on purpose: the z-score formula's sign
// convention makes the largest distance the warmest deviation, so warm takes
// the last rank and cold the first; the KS statistic already encodes the
// direction in its alternative hypothesis, so both extremes take the first
// rank. The divergence is part of the selection method's definition.
func selectYear(total Profile, candidates map[int]Profile, years []int, policy Policy, month int) (int, error) {
	type scored struct {
		year     int
		distance float64
	}

	ranked := make([]scored, 0, len(candidates))
	for _, y := range years {
		cand, ok := candidates[y]
		if !ok {
			continue
		}
		var d float64
		if policy.Metric == MetricKS {
			d = ksStatistic(total, cand, alternativeFor(policy.Target))
		} else {
			d = zScore(total, cand)
			if policy.Target == TargetTypical {
				// Signed z-scores rank coldest first; typical wants the
				// closest match, which is the smallest magnitude.
				d = math.Abs(d)
			}
		}
		ranked = append(ranked, scored{year: y, distance: d})
	}
	if len(ranked) == 0 {
		return 0, &domain.ValidationError{Msg: fmt.Sprintf("no candidate year has data for month %d", month)}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })

	if policy.Target == TargetExtremeWarm && policy.Metric == MetricZScore {
		return ranked[len(ranked)-1].year, nil
	}
	return ranked[0].year, nil
}

// monthProfile computes the 100-point quantile profile of variable over month
// m, pooled across all years when year is 0 or restricted to one year
// otherwise. Missing values are forward-filled first so sparse holes do not
// distort the quantiles; values still missing after the fill (leading holes)
// are dropped rather than zeroed. Returns ok=false when nothing remains.
func monthProfile(data domain.Dataset, m, year int, variable string) (Profile, bool) {
	var series []float64
	for _, r := range data {
		if r.Month != m || (year != 0 && r.Year != year) {
			continue
		}
		if v, ok := r.Value(variable); ok {
			series = append(series, v)
		} else {
			series = append(series, math.NaN())
		}
	}

	forwardFill(series)

	clean := series[:0]
	for _, v := range series {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Profile{}, false
	}

	sort.Float64s(clean)
	var prof Profile
	for i := range prof {
		p := float64(i) / float64(profilePoints-1)
		prof[i] = stat.Quantile(p, stat.LinInterp, clean, nil)
	}
	return prof, true
}

func forwardFill(series []float64) {
	last := math.NaN()
	for i, v := range series {
		if math.IsNaN(v) {
			series[i] = last
		} else {
			last = v
		}
	}
}

func hasMonth(data domain.Dataset, m int) bool {
	for _, r := range data {
		if r.Month == m {
			return true
		}
	}
	return false
}
