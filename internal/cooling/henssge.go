// Package cooling implements the Henssge body-cooling nomogram used as an
// independent early-interval cross-check alongside the entomological
// estimate.
package cooling

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

const (
	normalBodyTempC = 37.2
	coolingConstant = 10.0
	referenceKG     = 70.0
)

// Estimate computes hours since death from rectal and ambient temperature.
// Only meaningful within roughly the first day, while the body is still
// warmer than its surroundings.
func Estimate(obs model.BodyObservation) (model.CoolingEstimate, error) {
	if obs.BodyWeightKG <= 0 {
		return model.CoolingEstimate{}, eris.New("cooling: body weight must be positive")
	}
	clothing := obs.ClothingFactor
	if clothing <= 0 {
		clothing = 1.0
	}

	tempDiff := obs.RectalTempC - obs.AmbientTempC
	initialDiff := normalBodyTempC - obs.AmbientTempC
	if tempDiff <= 0 || initialDiff <= 0 {
		return model.CoolingEstimate{}, eris.New("cooling: rectal temperature at or below ambient, nomogram not applicable")
	}

	weightCorrection := math.Cbrt(obs.BodyWeightKG / referenceKG)
	ratio := tempDiff / initialDiff

	var hours float64
	if ratio < 1.0 {
		hours = -coolingConstant * math.Log(ratio) * weightCorrection * clothing
	}

	return model.CoolingEstimate{
		Hours:         hours,
		IntervalHours: 2.0 + hours*0.1,
	}, nil
}
