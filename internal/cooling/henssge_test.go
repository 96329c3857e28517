package cooling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

func TestEstimate_ReferenceBody(t *testing.T) {
	// 70 kg reference body, no clothing correction: hours = -10·ln(ratio).
	obs := model.BodyObservation{
		RectalTempC:  31.1, // ratio (31.1-20)/(37.2-20) ≈ 0.6453
		AmbientTempC: 20,
		BodyWeightKG: 70,
	}
	est, err := Estimate(obs)
	require.NoError(t, err)

	expected := -10 * math.Log((31.1-20)/(37.2-20))
	assert.InDelta(t, expected, est.Hours, 1e-9)
	assert.InDelta(t, 2.0+expected*0.1, est.IntervalHours, 1e-9)
}

func TestEstimate_WeightCorrection(t *testing.T) {
	light := model.BodyObservation{RectalTempC: 30, AmbientTempC: 18, BodyWeightKG: 50}
	heavy := model.BodyObservation{RectalTempC: 30, AmbientTempC: 18, BodyWeightKG: 100}

	le, err := Estimate(light)
	require.NoError(t, err)
	he, err := Estimate(heavy)
	require.NoError(t, err)

	// Heavier bodies cool slower, so the same reading means more hours.
	assert.Greater(t, he.Hours, le.Hours)
}

func TestEstimate_ClothingSlowsCooling(t *testing.T) {
	bare := model.BodyObservation{RectalTempC: 30, AmbientTempC: 18, BodyWeightKG: 70}
	clothed := bare
	clothed.ClothingFactor = 1.3

	be, err := Estimate(bare)
	require.NoError(t, err)
	ce, err := Estimate(clothed)
	require.NoError(t, err)

	assert.InDelta(t, be.Hours*1.3, ce.Hours, 1e-9)
}

func TestEstimate_Errors(t *testing.T) {
	_, err := Estimate(model.BodyObservation{RectalTempC: 30, AmbientTempC: 18})
	require.Error(t, err)

	// At ambient: nomogram not applicable.
	_, err = Estimate(model.BodyObservation{RectalTempC: 18, AmbientTempC: 18, BodyWeightKG: 70})
	require.Error(t, err)

	// Ambient above normal body temperature.
	_, err = Estimate(model.BodyObservation{RectalTempC: 39, AmbientTempC: 40, BodyWeightKG: 70})
	require.Error(t, err)
}

func TestEstimate_FreshBodyZeroHours(t *testing.T) {
	obs := model.BodyObservation{RectalTempC: 37.2, AmbientTempC: 20, BodyWeightKG: 70}
	est, err := Estimate(obs)
	require.NoError(t, err)
	assert.Zero(t, est.Hours)
}
