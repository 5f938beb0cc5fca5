package tmy

import (
	"testing"

	"github.com/justinfmccarty/weather-file-builder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepProfile is half zeros, half ones: mean 0.5, population variance 0.25.
func stepProfile() Profile {
	var p Profile
	for i := 50; i < 100; i++ {
		p[i] = 1
	}
	return p
}

func constantProfile(v float64) Profile {
	var p Profile
	for i := range p {
		p[i] = v
	}
	return p
}

func TestZScore(t *testing.T) {
	total := stepProfile()
	warm := constantProfile(1)

	// -(0.5 - 1.0) / sqrt(0.25 + 0) = 1.0
	assert.InDelta(t, 1.0, zScore(total, warm), 1e-12)
	assert.InDelta(t, -1.0, zScore(warm, total), 1e-12)
	assert.Zero(t, zScore(total, total))
}

func TestZScore_SignConvention(t *testing.T) {
	total := stepProfile()
	cold := constantProfile(0)

	// Warmer candidates score positive, colder negative.
	assert.Positive(t, zScore(total, constantProfile(1)))
	assert.Negative(t, zScore(total, cold))
}

func TestKSStatistic(t *testing.T) {
	total := stepProfile()
	warm := constantProfile(1)

	// Half of total sits below every warm point, so F_total leads by 0.5.
	assert.InDelta(t, 0.5, ksStatistic(total, warm, twoSided), 1e-12)
	assert.InDelta(t, 0.5, ksStatistic(total, warm, greater), 1e-12)
	assert.Zero(t, ksStatistic(total, warm, less))

	assert.Zero(t, ksStatistic(total, total, twoSided))
	assert.Zero(t, ksStatistic(total, total, greater))
	assert.Zero(t, ksStatistic(total, total, less))
}

func TestAlternativeFor(t *testing.T) {
	assert.Equal(t, twoSided, alternativeFor(TargetTypical))
	assert.Equal(t, greater, alternativeFor(TargetExtremeWarm))
	assert.Equal(t, less, alternativeFor(TargetExtremeCold))
}

func TestMonthProfile_ForwardFill(t *testing.T) {
	data := domain.Dataset{
		{Year: 2020, Month: 1, Day: 1, Values: domain.Values{domain.VarTemperature: 10}},
		{Year: 2020, Month: 1, Day: 2, Values: domain.Values{domain.VarPressure: 1000}},
		{Year: 2020, Month: 1, Day: 3, Values: domain.Values{domain.VarTemperature: 12}},
	}

	// The gap fills forward from 10, so the series is {10, 10, 12}.
	prof, ok := monthProfile(data, 1, 2020, domain.VarTemperature)
	require.True(t, ok)
	assert.Equal(t, 10.0, prof[0])
	assert.Equal(t, 10.0, prof[49])
	assert.Equal(t, 12.0, prof[99])
}

func TestMonthProfile_LeadingGapDropped(t *testing.T) {
	data := domain.Dataset{
		{Year: 2020, Month: 1, Day: 1, Values: domain.Values{domain.VarPressure: 1000}},
		{Year: 2020, Month: 1, Day: 2, Values: domain.Values{domain.VarTemperature: 10}},
	}

	prof, ok := monthProfile(data, 1, 2020, domain.VarTemperature)
	require.True(t, ok)
	assert.Equal(t, constantProfile(10), prof)
}

func TestMonthProfile_NoValues(t *testing.T) {
	data := domain.Dataset{
		{Year: 2020, Month: 1, Day: 1, Values: domain.Values{domain.VarPressure: 1000}},
	}

	_, ok := monthProfile(data, 1, 2020, domain.VarTemperature)
	assert.False(t, ok)
}
