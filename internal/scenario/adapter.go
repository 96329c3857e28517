// Package scenario is the validation boundary between untrusted scenario
// records (case files, AI-parsed narratives) and the estimation engine.
// Everything crossing into internal/simulate passes through here first; the
// engine itself assumes clean input.
package scenario

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/cooling"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/simulate"
)

// Adapter resolves and validates raw scenarios against the loaded catalogs
// and runs the engine. Catalogs and params are read-only; one Adapter may
// serve concurrent runs.
type Adapter struct {
	Species *catalog.SpeciesCatalog
	Tox     *catalog.ToxicologyCatalog
	Params  simulate.Params
	// PIADelays maps concealment category to pre-colonization delay hours.
	PIADelays map[model.Concealment]float64
}

// DefaultPIADelays returns the concealment → access delay table used when
// configuration supplies none.
func DefaultPIADelays() map[model.Concealment]float64 {
	return map[model.Concealment]float64{
		model.ConcealmentOpen:    0,
		model.ConcealmentWrapped: 24,
		model.ConcealmentBuried:  48,
	}
}

// Resolved is a fully validated scenario ready for the engine.
type Resolved struct {
	Profile       catalog.SpeciesProfile
	StageIndex    int
	Timeline      *simulate.Timeline
	Toxicology    []model.ToxicologyFactor
	Discovery     time.Time
	PIADelayHours float64
	Body          *model.BodyObservation
}

// Resolve validates a raw scenario. All contract violations surface here
// with the offending entity named; nothing is silently repaired.
func (a *Adapter) Resolve(sc model.Scenario) (*Resolved, error) {
	profile, err := a.Species.Lookup(sc.SpeciesID)
	if err != nil {
		return nil, err
	}
	stageIdx, err := profile.StageIndex(sc.ObservedStage)
	if err != nil {
		return nil, err
	}

	if len(sc.Weather) == 0 {
		return nil, simulate.ErrEmptyWeather
	}
	discovery := sc.DiscoveryTime
	if discovery.IsZero() {
		discovery = sc.Weather[len(sc.Weather)-1].Time
	}
	windowStart := sc.Weather[0].Time
	if !discovery.After(windowStart) {
		return nil, eris.Errorf("scenario: discovery %s not after weather window start %s",
			discovery.Format(time.RFC3339), windowStart.Format(time.RFC3339))
	}

	for i, ev := range sc.SceneEvents {
		if !ev.End.After(ev.Start) {
			return nil, eris.Wrapf(simulate.ErrMalformedEventWindow,
				"event %d (%s): end %s not after start %s", i, ev.Cause,
				ev.End.Format(time.RFC3339), ev.Start.Format(time.RFC3339))
		}
		if ev.End.Before(windowStart) || ev.Start.After(discovery) {
			return nil, eris.Wrapf(simulate.ErrMalformedEventWindow,
				"event %d (%s): outside simulation window", i, ev.Cause)
		}
	}

	// Each drug resolves against the catalog; the catalog multiplier wins
	// over whatever the raw record claimed.
	tox := make([]model.ToxicologyFactor, 0, len(sc.Toxicology))
	for _, t := range sc.Toxicology {
		f, err := a.Tox.Lookup(t.Drug)
		if err != nil {
			return nil, err
		}
		tox = append(tox, model.ToxicologyFactor{Drug: f.Drug, Multiplier: f.Multiplier})
	}

	pia, err := a.piaDelay(sc.Concealment, discovery.Sub(windowStart).Hours())
	if err != nil {
		return nil, err
	}

	tl, err := simulate.NewTimeline(sc.Weather, sc.SceneEvents, a.solarOffset(sc.Solar), sc.Soil)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Profile:       profile,
		StageIndex:    stageIdx,
		Timeline:      tl,
		Toxicology:    tox,
		Discovery:     discovery,
		PIADelayHours: pia,
		Body:          sc.Body,
	}, nil
}

// Run resolves the scenario and executes the inverse solve, attaching the
// Henssge cross-check when body observations are present.
func (a *Adapter) Run(sc model.Scenario) (*model.RunResult, error) {
	resolved, err := a.Resolve(sc)
	if err != nil {
		return nil, err
	}

	solver := simulate.NewSolver(resolved.Profile, resolved.Timeline, a.Params,
		resolved.Toxicology, resolved.Discovery, resolved.PIADelayHours)

	est, curve, err := solver.Solve(resolved.StageIndex)
	if err != nil {
		return nil, err
	}

	result := &model.RunResult{
		Estimate: &est,
		Curve:    curve,
		Species:  resolved.Profile.ID,
		Stage:    sc.ObservedStage,
	}

	if resolved.Body != nil {
		ce, err := cooling.Estimate(*resolved.Body)
		if err != nil {
			zap.L().Warn("scenario: body cooling cross-check not applicable", zap.Error(err))
		} else {
			result.Cooling = &ce
		}
	}

	if est.NightOviposition {
		zap.L().Warn("scenario: estimated oviposition falls at night; true event is likely the preceding dusk",
			zap.Time("oviposition", resolved.Discovery.Add(-time.Duration((est.ElapsedHours-est.PIADelayHours)*float64(time.Hour)))),
		)
	}

	return result, nil
}

func (a *Adapter) solarOffset(s model.SolarExposure) float64 {
	switch s {
	case model.SolarSunny:
		return a.Params.SunnyOffsetC
	case model.SolarShaded:
		return a.Params.ShadedOffsetC
	default:
		return 0
	}
}

func (a *Adapter) piaDelay(c model.Concealment, windowHours float64) (float64, error) {
	if c == "" {
		return 0, nil
	}
	delays := a.PIADelays
	if delays == nil {
		delays = DefaultPIADelays()
	}
	d, ok := delays[c]
	if !ok {
		return 0, eris.Errorf("scenario: unknown concealment category %q", c)
	}
	if d < 0 {
		return 0, eris.Errorf("scenario: concealment %q delay %.1f h is negative", c, d)
	}
	if d > windowHours {
		return 0, eris.Errorf("scenario: concealment %q delay %.1f h exceeds simulated window %.1f h", c, d, windowHours)
	}
	return d, nil
}
