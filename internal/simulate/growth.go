package simulate

import (
	"sort"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// GrowthRate converts an effective temperature into an instantaneous growth
// rate multiplier. Below the lower developmental threshold and at or above
// the upper threshold the rate is exactly zero; the upper cutoff models
// developmental arrest, not slowdown. Toxicology factors multiply the base
// rate, composed in alphabetical drug order so the product is reproducible
// regardless of input ordering.
type GrowthRate struct {
	ldtC   float64
	udtC   float64
	toxMul float64
}

// NewGrowthRate builds the rate function for one run. The toxicology slice
// is not mutated.
func NewGrowthRate(ldtC, udtC float64, tox []model.ToxicologyFactor) GrowthRate {
	sorted := make([]model.ToxicologyFactor, len(tox))
	copy(sorted, tox)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Drug < sorted[j].Drug })

	mul := 1.0
	for _, f := range sorted {
		mul *= f.Multiplier
	}

	return GrowthRate{ldtC: ldtC, udtC: udtC, toxMul: mul}
}

// Rate returns the growth rate multiplier at the given temperature.
func (g GrowthRate) Rate(tempC float64) float64 {
	if tempC < g.ldtC || tempC >= g.udtC {
		return 0
	}
	return g.toxMul
}

// Excess returns the developmental temperature excess driving accumulation,
// clamped to [0, UDT-LDT].
func (g GrowthRate) Excess(tempC float64) float64 {
	excess := tempC - g.ldtC
	if excess < 0 {
		return 0
	}
	if ceiling := g.udtC - g.ldtC; excess > ceiling {
		return ceiling
	}
	return excess
}
