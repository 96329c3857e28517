package simulate

import "time"

// MassParams configures the maggot-mass self-heating model.
type MassParams struct {
	// ColonizationADH is the cumulative ADH at which a larval mass large
	// enough to self-heat is assumed to exist. Below it the correction is
	// zero.
	ColonizationADH float64
	// RampADH is the accumulation span over which the correction climbs
	// from zero to MaxHeatC. Zero means the full correction applies as
	// soon as the colonization threshold is passed.
	RampADH float64
	// MaxHeatC is the saturation ceiling in degrees Celsius.
	MaxHeatC float64
}

// Params carries every engine tunable. A zero value is not usable; start
// from DefaultParams and override.
type Params struct {
	// StepHours is the outer integration step. Sub-stepping at stage
	// thresholds happens internally regardless.
	StepHours float64
	// MaxSearchHours caps the inverse search. Zero means "bounded by the
	// weather span only".
	MaxSearchHours float64
	SunnyOffsetC   float64
	ShadedOffsetC  float64
	Mass           MassParams
	// DefaultVariancePct is the ± stage requirement tolerance used for the
	// confidence interval when the species profile declares none.
	DefaultVariancePct float64
	// ConfidenceLevel is attached to the interval method; it is a fixed
	// property of the variance convention, not re-derived per run.
	ConfidenceLevel float64
}

// DefaultParams returns the engine defaults. All of these are exposed
// through configuration; none are compiled-in constants elsewhere.
func DefaultParams() Params {
	return Params{
		StepHours:      1.0,
		MaxSearchHours: 0,
		SunnyOffsetC:   5.0,
		ShadedOffsetC:  -2.0,
		Mass: MassParams{
			ColonizationADH: 350,
			RampADH:         200,
			MaxHeatC:        5.0,
		},
		DefaultVariancePct: 0.10,
		ConfidenceLevel:    0.95,
	}
}

// hoursToDuration converts fractional hours to a time.Duration without
// drifting on large values.
func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
