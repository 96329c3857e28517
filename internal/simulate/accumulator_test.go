package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/model"
)

func multiStageProfile() catalog.SpeciesProfile {
	return catalog.SpeciesProfile{
		ID:   "test_species",
		LDTC: 10,
		UDTC: 40,
		Stages: []catalog.StageRequirement{
			{Stage: "egg", ADH: 10},
			{Stage: "instar_1", ADH: 20},
			{Stage: "instar_2", ADH: 30},
		},
	}
}

func newTestAccumulator(t *testing.T, tempC float64) *Accumulator {
	t.Helper()
	tl, err := NewTimeline(constantWeather(tempC, 48), nil, 0, nil)
	require.NoError(t, err)
	rate := NewGrowthRate(10, 40, nil)
	return NewAccumulator(tl, rate, MassParams{}, multiStageProfile(), discovery, 30)
}

func TestAccumulator_SingleLongStepCrossesEachStageOnce(t *testing.T) {
	// At 25°C one hour accumulates 15 ADH; a 4 h step spans all three
	// thresholds. Each crossing must advance the stage pointer exactly once.
	acc := newTestAccumulator(t, 25)

	cum, advanced, reached := acc.Step(4, 0)
	assert.True(t, advanced)
	assert.False(t, reached)
	assert.InDelta(t, 60, cum, 1e-9)
	assert.Equal(t, 3, acc.StageIndex())

	// The curve must contain a point exactly at every threshold.
	seen := map[float64]bool{}
	for _, p := range acc.Curve() {
		seen[p.CumulativeADH] = true
	}
	assert.True(t, seen[10])
	assert.True(t, seen[20])
	assert.True(t, seen[30])
}

func TestAccumulator_StopTargetEndsStepExactly(t *testing.T) {
	acc := newTestAccumulator(t, 25)

	cum, _, reached := acc.Step(4, 25)
	assert.True(t, reached)
	assert.InDelta(t, 25, cum, 1e-9)
	// 25 ADH at 15 ADH/h.
	assert.InDelta(t, 25.0/15, acc.Elapsed(), 1e-9)
	// Thresholds at 10 and 20 were crossed on the way.
	assert.Equal(t, 2, acc.StageIndex())
}

func TestAccumulator_NoDevelopmentStillPassesTime(t *testing.T) {
	acc := newTestAccumulator(t, 5)

	cum, advanced, reached := acc.Step(6, 100)
	assert.Zero(t, cum)
	assert.False(t, advanced)
	assert.False(t, reached)
	assert.InDelta(t, 6, acc.Elapsed(), 1e-9)
	assert.Zero(t, acc.StageIndex())
}

func TestAccumulator_StageNeverRegresses(t *testing.T) {
	acc := newTestAccumulator(t, 25)

	prev := acc.StageIndex()
	for i := 0; i < 10; i++ {
		acc.Step(0.5, 0)
		assert.GreaterOrEqual(t, acc.StageIndex(), prev)
		prev = acc.StageIndex()
	}
}

func TestAccumulator_MassHeatFollowsBiologicalAge(t *testing.T) {
	tl, err := NewTimeline(constantWeather(25, 200), nil, 0, nil)
	require.NoError(t, err)
	rate := NewGrowthRate(10, 40, nil)
	profile := catalog.SpeciesProfile{
		ID:   "test_species",
		LDTC: 10,
		UDTC: 40,
		Stages: []catalog.StageRequirement{
			{Stage: "instar_1", ADH: 50},
		},
	}
	mass := MassParams{ColonizationADH: 29, RampADH: 0, MaxHeatC: 5}
	acc := NewAccumulator(tl, rate, mass, profile, discovery, 50)

	// At discovery the colony is mature (biological age 50 ADH), so the
	// heat is already at its maximum.
	first := acc.Curve()[0]
	assert.InDelta(t, 5, first.MassHeatC, 1e-9)
	assert.InDelta(t, 30, first.EffectiveTempC, 1e-9)

	// Heated steps run at 20 ADH/h (excess 20 at 30°C effective).
	acc.Step(1, 0)
	assert.InDelta(t, 20, acc.CumulativeADH(), 1e-9)

	// Age 30 ADH at step start is still past colonization; heat holds.
	acc.Step(1, 0)
	assert.InDelta(t, 40, acc.CumulativeADH(), 1e-9)
	heated := acc.Curve()[len(acc.Curve())-1]
	assert.InDelta(t, 5, heated.MassHeatC, 1e-9)

	// Age 10 ADH at step start: the colony no longer exists, so the step
	// runs unheated at 15 ADH/h and crosses the 50 ADH threshold after
	// 10/15 h.
	acc.Step(1, 0)
	assert.InDelta(t, 55, acc.CumulativeADH(), 1e-9)
	assert.InDelta(t, 2+1, acc.Elapsed(), 1e-9)

	var crossing *model.CurvePoint
	curve := acc.Curve()
	for i := range curve {
		if curve[i].CumulativeADH == 50 {
			crossing = &curve[i]
		}
	}
	require.NotNil(t, crossing)
	assert.InDelta(t, 0, crossing.MassHeatC, 1e-9)
	assert.InDelta(t, 25, crossing.EffectiveTempC, 1e-9)
	assert.InDelta(t, 2+10.0/15, crossing.ElapsedHours, 1e-9)
}
