package simulate

import (
	"time"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/model"
)

const adhEpsilon = 1e-9

// Accumulator integrates growth-rate-weighted temperature excess into
// cumulative accumulated degree-hours, tracking a growth-stage pointer
// through the species' ordered requirement sequence.
//
// Time runs in elapsed hours before discovery: the solver walks the
// observation window backward from the discovery instant, which is the
// back-calculation form of the forward development integral. The stage
// pointer advances exactly one threshold per crossing; long steps are
// sub-stepped internally so no crossing is ever skipped.
//
// An Accumulator is owned by exactly one run and is not safe for
// concurrent use.
type Accumulator struct {
	timeline  *Timeline
	rate      GrowthRate
	mass      MassParams
	stages    []catalog.StageRequirement
	discovery time.Time
	target    float64

	elapsed float64
	cum     float64
	stage   int
	curve   []model.CurvePoint
}

// NewAccumulator builds a fresh accumulator at elapsed 0 with no
// accumulation. targetADH is the observed stage's requirement for this run;
// the larva's biological age at any point of the backward walk is the
// target minus the accumulation so far, and the mass-heat correction is
// driven by that age: maximal at discovery, gone before colonization.
func NewAccumulator(tl *Timeline, rate GrowthRate, mass MassParams, profile catalog.SpeciesProfile, discovery time.Time, targetADH float64) *Accumulator {
	a := &Accumulator{
		timeline:  tl,
		rate:      rate,
		mass:      mass,
		stages:    profile.Stages,
		discovery: discovery,
		target:    targetADH,
	}
	massC := a.massHeat()
	a.record(tl.BaseTemp(discovery), tl.EffectiveTemp(discovery)+massC, massC)
	return a
}

// massHeat returns the self-heating delta for the current biological age.
func (a *Accumulator) massHeat() float64 {
	age := a.target - a.cum
	if age < 0 {
		age = 0
	}
	return a.mass.Correction(age)
}

// Elapsed returns hours accumulated so far.
func (a *Accumulator) Elapsed() float64 { return a.elapsed }

// CumulativeADH returns the running accumulated degree-hours.
func (a *Accumulator) CumulativeADH() float64 { return a.cum }

// StageIndex returns how many stage thresholds have been crossed.
func (a *Accumulator) StageIndex() int { return a.stage }

// Curve returns the ADH-vs-time samples recorded so far, ordered from
// discovery backward.
func (a *Accumulator) Curve() []model.CurvePoint { return a.curve }

// Step advances the integration by dt hours. Temperature is sampled at the
// start of each sub-step and held constant across it. If stopAtADH > 0 and
// the accumulation reaches it mid-step, the step ends exactly at the
// crossing and reached is true. stageAdvanced reports whether at least one
// stage threshold was crossed during this step.
func (a *Accumulator) Step(dt, stopAtADH float64) (cumulativeADH float64, stageAdvanced, reached bool) {
	remaining := dt
	for remaining > adhEpsilon {
		at := a.discovery.Add(-hoursToDuration(a.elapsed))
		base := a.timeline.BaseTemp(at)
		ambient := a.timeline.EffectiveTemp(at)
		massC := a.massHeat()
		temp := ambient + massC

		perHour := a.rate.Excess(temp) * a.rate.Rate(temp)
		if perHour <= 0 {
			// No development this step; time still passes.
			a.elapsed += remaining
			a.record(base, temp, massC)
			break
		}

		// Nearest boundary: the next stage threshold or the caller's stop
		// target, whichever comes first.
		limit := stopAtADH
		crossesStage := false
		if a.stage < len(a.stages) {
			th := a.stages[a.stage].ADH
			if limit <= 0 || th < limit {
				limit = th
				crossesStage = true
			}
		}

		projected := a.cum + perHour*remaining
		if limit > 0 && projected >= limit-adhEpsilon {
			dtCross := (limit - a.cum) / perHour
			a.elapsed += dtCross
			a.cum = limit
			remaining -= dtCross
			if crossesStage {
				a.stage++
				stageAdvanced = true
			}
			a.record(base, temp, massC)
			if !crossesStage || (stopAtADH > 0 && a.cum >= stopAtADH-adhEpsilon) {
				return a.cum, stageAdvanced, true
			}
			continue
		}

		a.cum = projected
		a.elapsed += remaining
		a.record(base, temp, massC)
		break
	}
	return a.cum, stageAdvanced, false
}

func (a *Accumulator) record(baseC, effectiveC, massC float64) {
	a.curve = append(a.curve, model.CurvePoint{
		Time:           a.discovery.Add(-hoursToDuration(a.elapsed)),
		ElapsedHours:   a.elapsed,
		CumulativeADH:  a.cum,
		StageIndex:     a.stage,
		BaseTempC:      baseC,
		EffectiveTempC: effectiveC,
		MassHeatC:      massC,
	})
}
