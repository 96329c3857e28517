package simulate

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// Timeline computes the effective ambient temperature at any instant from a
// base weather series, scene-event corrections, a solar exposure offset,
// and an optional burial correction. It is a pure function of the query
// time once built, so it can be sampled repeatedly and out of order.
//
// Interpolation policy (pinned by tests): linear between adjacent samples,
// clamp to the nearest sample outside the sampled span.
//
// Event policy (pinned by tests): override events replace the base value,
// latest start time wins, equal starts resolved by declaration order
// (later wins); delta events are summed on top; the solar offset applies
// last.
type Timeline struct {
	samples     []model.WeatherSample
	events      []model.SceneEvent
	solarC      float64
	soil        *model.SoilParams
	meanTempC   float64
	spanStart   time.Time
	spanEnd     time.Time
}

// NewTimeline validates the weather series and builds a timeline.
func NewTimeline(samples []model.WeatherSample, events []model.SceneEvent, solarOffsetC float64, soil *model.SoilParams) (*Timeline, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyWeather
	}
	var sum float64
	for i, s := range samples {
		if i > 0 && !s.Time.After(samples[i-1].Time) {
			return nil, eris.Wrapf(ErrUnorderedWeather, "sample %d at %s", i, s.Time.Format(time.RFC3339))
		}
		sum += s.TempC
	}
	return &Timeline{
		samples:   samples,
		events:    events,
		solarC:    solarOffsetC,
		soil:      soil,
		meanTempC: sum / float64(len(samples)),
		spanStart: samples[0].Time,
		spanEnd:   samples[len(samples)-1].Time,
	}, nil
}

// Span returns the first and last sample timestamps.
func (tl *Timeline) Span() (time.Time, time.Time) {
	return tl.spanStart, tl.spanEnd
}

// BaseTemp returns the interpolated weather value at t, before any scene
// correction.
func (tl *Timeline) BaseTemp(t time.Time) float64 {
	s := tl.samples
	if !t.After(tl.spanStart) {
		return s[0].TempC
	}
	if !t.Before(tl.spanEnd) {
		return s[len(s)-1].TempC
	}

	// First sample strictly after t; its predecessor starts the segment.
	i := sort.Search(len(s), func(i int) bool { return s[i].Time.After(t) })
	lo, hi := s[i-1], s[i]
	frac := float64(t.Sub(lo.Time)) / float64(hi.Time.Sub(lo.Time))
	return lo.TempC + (hi.TempC-lo.TempC)*frac
}

// EffectiveTemp returns the scene-corrected temperature at t: burial
// damping on the base value, then overrides, then summed deltas, then the
// solar offset. Maggot-mass heat is not included here; it depends on
// accumulated growth and is applied by the accumulator.
func (tl *Timeline) EffectiveTemp(t time.Time) float64 {
	temp := tl.soilCorrected(tl.BaseTemp(t))

	// Override events replace the running value. Last-declared-wins on
	// identical start times keeps overlap resolution deterministic.
	overridden := false
	var winner model.SceneEvent
	for _, ev := range tl.events {
		if ev.Override == nil || !ev.Contains(t) {
			continue
		}
		if !overridden || !ev.Start.Before(winner.Start) {
			winner = ev
			overridden = true
		}
	}
	if overridden {
		temp = *winner.Override
	}

	for _, ev := range tl.events {
		if ev.Override == nil && ev.Contains(t) {
			temp += ev.DeltaC
		}
	}

	return temp + tl.solarC
}

// soilCorrected applies the burial model: a measured soil temperature
// replaces the air value outright; otherwise the air value is damped
// toward the window mean by 1.5% per cm of depth, with additional summer
// cooling at depth.
func (tl *Timeline) soilCorrected(base float64) float64 {
	if tl.soil == nil {
		return base
	}
	if tl.soil.MeasuredTempC != nil {
		return *tl.soil.MeasuredTempC
	}
	damp := tl.soil.DepthCM * 0.015
	if damp > 1 {
		damp = 1
	}
	temp := base*(1-damp) + tl.meanTempC*damp
	if base > 20 {
		temp -= tl.soil.DepthCM * 0.05
	}
	return temp
}
