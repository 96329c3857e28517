package simulate

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/model"
)

// Solver performs the inverse search: it integrates the accumulator over
// the observation window until the accumulated value matches the observed
// stage requirement, then converts the crossing time into a post-mortem
// interval with a bounded confidence interval.
//
// A Solver is built once per run and owns no shared mutable state, so
// independent runs are safe to dispatch across goroutines as long as each
// has its own Solver.
type Solver struct {
	profile   catalog.SpeciesProfile
	timeline  *Timeline
	params    Params
	tox       []model.ToxicologyFactor
	discovery time.Time
	piaHours  float64
}

// NewSolver wires a solver for one scenario run.
func NewSolver(profile catalog.SpeciesProfile, tl *Timeline, params Params, tox []model.ToxicologyFactor, discovery time.Time, piaDelayHours float64) *Solver {
	return &Solver{
		profile:   profile,
		timeline:  tl,
		params:    params,
		tox:       tox,
		discovery: discovery,
		piaHours:  piaDelayHours,
	}
}

// Horizon returns the search ceiling in hours: the configured maximum, or
// the weather span before discovery when no maximum is set (the engine does
// not fabricate temperatures beyond the observed window).
func (s *Solver) Horizon() float64 {
	start, _ := s.timeline.Span()
	span := s.discovery.Sub(start).Hours()
	if s.params.MaxSearchHours > 0 && s.params.MaxSearchHours < span {
		return s.params.MaxSearchHours
	}
	return span
}

// Solve runs the inverse search for the given observed stage index and
// returns the estimate together with the full ADH-vs-time curve of the
// point-estimate run.
func (s *Solver) Solve(observedStageIndex int) (model.PMIEstimate, []model.CurvePoint, error) {
	if observedStageIndex < 0 || observedStageIndex >= len(s.profile.Stages) {
		return model.PMIEstimate{}, nil, eris.Errorf("simulate: stage index %d out of range for %s (%d stages)",
			observedStageIndex, s.profile.ID, len(s.profile.Stages))
	}
	target := s.profile.Stages[observedStageIndex].ADH
	horizon := s.Horizon()

	elapsed, curve, reached := s.run(target, horizon)
	if !reached {
		return model.PMIEstimate{}, nil, eris.Wrapf(ErrSearchExhausted,
			"species %s stage %q (%.0f ADH) within %.0f h", s.profile.ID,
			s.profile.Stages[observedStageIndex].Stage, target, horizon)
	}

	variance := s.profile.VariancePct
	if variance == 0 {
		variance = s.params.DefaultVariancePct
	}

	// The optimistic requirement is crossed no later than the point
	// estimate; the pessimistic one may run off the horizon, in which case
	// the upper bound is capped there.
	lower, _, lowerReached := s.run(target*(1-variance), horizon)
	if !lowerReached {
		lower = elapsed
	}
	upper, _, upperReached := s.run(target*(1+variance), horizon)
	if !upperReached {
		upper = horizon
		zap.L().Warn("simulate: pessimistic bound capped at horizon",
			zap.String("species", s.profile.ID),
			zap.Float64("horizon_hours", horizon),
		)
	}

	// The night flag is judged in the zone the discovery timestamp
	// carries; case files must record discovery in scene-local time for
	// the flag to be meaningful.
	oviposition := s.discovery.Add(-hoursToDuration(elapsed))
	hour := oviposition.Hour()

	est := model.PMIEstimate{
		ElapsedHours:         elapsed + s.piaHours,
		EstimatedTimeOfDeath: oviposition.Add(-hoursToDuration(s.piaHours)),
		LowerBoundHours:      lower + s.piaHours,
		UpperBoundHours:      upper + s.piaHours,
		ConfidenceLevel:      s.params.ConfidenceLevel,
		PIADelayHours:        s.piaHours,
		TargetADH:            target,
		AccumulatedADH:       target,
		NightOviposition:     hour >= 20 || hour < 6,
	}
	return est, curve, nil
}

// run integrates a fresh accumulator until targetADH or the horizon.
func (s *Solver) run(targetADH, horizon float64) (elapsed float64, curve []model.CurvePoint, reached bool) {
	rate := NewGrowthRate(s.profile.LDTC, s.profile.UDTC, s.tox)
	acc := NewAccumulator(s.timeline, rate, s.params.Mass, s.profile, s.discovery, targetADH)

	step := s.params.StepHours
	if step <= 0 {
		step = 1.0
	}

	for acc.Elapsed() < horizon {
		dt := step
		if left := horizon - acc.Elapsed(); left < dt {
			dt = left
		}
		if dt <= adhEpsilon {
			break
		}
		if _, _, hit := acc.Step(dt, targetADH); hit {
			return acc.Elapsed(), acc.Curve(), true
		}
	}
	return acc.Elapsed(), acc.Curve(), false
}
