package scenario

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortis-lab/pmi-cli/internal/catalog"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/simulate"
)

var discovery = time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	species, err := catalog.NewSpeciesCatalog(catalog.DefaultSpecies())
	require.NoError(t, err)
	tox, err := catalog.NewToxicologyCatalog(catalog.DefaultToxicology())
	require.NoError(t, err)

	params := simulate.DefaultParams()
	params.Mass = simulate.MassParams{}
	return &Adapter{Species: species, Tox: tox, Params: params}
}

func flatWeather(tempC float64, hours int) []model.WeatherSample {
	samples := make([]model.WeatherSample, 0, hours+1)
	for i := hours; i >= 0; i-- {
		samples = append(samples, model.WeatherSample{
			Time:  discovery.Add(-time.Duration(i) * time.Hour),
			TempC: tempC,
		})
	}
	return samples
}

func baseScenario() model.Scenario {
	return model.Scenario{
		CaseID:        "case-001",
		SpeciesID:     "lucilia_sericata",
		ObservedStage: "egg",
		DiscoveryTime: discovery,
		Weather:       flatWeather(25, 96),
	}
}

func TestAdapter_Run_PointEstimate(t *testing.T) {
	a := newTestAdapter(t)

	// 20 ADH for the egg stage at 25°C with LDT 9: 20/16 = 1.25 h.
	res, err := a.Run(baseScenario())
	require.NoError(t, err)
	require.NotNil(t, res.Estimate)

	assert.InDelta(t, 1.25, res.Estimate.ElapsedHours, 1e-9)
	assert.Equal(t, "lucilia_sericata", res.Species)
	assert.Equal(t, "egg", res.Stage)
	assert.NotEmpty(t, res.Curve)
	assert.Nil(t, res.Cooling)
}

func TestAdapter_Run_ToxicologyResolvedFromCatalog(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	// The record claims a bogus multiplier; the catalog value (1.5) wins.
	sc.Toxicology = []model.ToxicologyFactor{{Drug: "Cocaine", Multiplier: 99}}

	res, err := a.Run(sc)
	require.NoError(t, err)
	assert.InDelta(t, 20.0/(16*1.5), res.Estimate.ElapsedHours, 1e-9)
}

func TestAdapter_Run_UnknownDrug(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Toxicology = []model.ToxicologyFactor{{Drug: "caffeine"}}

	_, err := a.Run(sc)
	assert.True(t, eris.Is(err, catalog.ErrUnknownDrug))
}

func TestAdapter_Run_UnknownSpeciesAndStage(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.SpeciesID = "musca_domestica"
	_, err := a.Run(sc)
	assert.True(t, eris.Is(err, catalog.ErrUnknownSpecies))

	sc = baseScenario()
	sc.ObservedStage = "imago"
	_, err = a.Run(sc)
	assert.True(t, eris.Is(err, catalog.ErrUnknownStage))
}

func TestAdapter_Resolve_EmptyWeather(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Weather = nil
	_, err := a.Resolve(sc)
	assert.True(t, eris.Is(err, simulate.ErrEmptyWeather))
}

func TestAdapter_Resolve_DiscoveryDefaultsToLastSample(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.DiscoveryTime = time.Time{}
	resolved, err := a.Resolve(sc)
	require.NoError(t, err)
	assert.Equal(t, discovery, resolved.Discovery)
}

func TestAdapter_Resolve_MalformedEventWindow(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.SceneEvents = []model.SceneEvent{{
		Start:  discovery.Add(-2 * time.Hour),
		End:    discovery.Add(-4 * time.Hour),
		DeltaC: 3,
		Cause:  model.CauseEnclosed,
	}}
	_, err := a.Resolve(sc)
	assert.True(t, eris.Is(err, simulate.ErrMalformedEventWindow))

	sc.SceneEvents = []model.SceneEvent{{
		Start:  discovery.Add(time.Hour),
		End:    discovery.Add(3 * time.Hour),
		DeltaC: 3,
	}}
	_, err = a.Resolve(sc)
	assert.True(t, eris.Is(err, simulate.ErrMalformedEventWindow))
}

func TestAdapter_Run_ConcealmentDelay(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Concealment = model.ConcealmentWrapped

	res, err := a.Run(sc)
	require.NoError(t, err)
	assert.InDelta(t, 1.25+24, res.Estimate.ElapsedHours, 1e-9)
	assert.InDelta(t, 24, res.Estimate.PIADelayHours, 1e-9)
}

func TestAdapter_Run_UnknownConcealment(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Concealment = "submerged"
	_, err := a.Run(sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown concealment")
}

func TestAdapter_Run_DelayExceedsWindow(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Weather = flatWeather(25, 12)
	sc.Concealment = model.ConcealmentBuried // 48 h delay, 12 h window

	_, err := a.Run(sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds simulated window")
}

func TestAdapter_Run_SolarOffsets(t *testing.T) {
	a := newTestAdapter(t)

	sunny := baseScenario()
	sunny.Solar = model.SolarSunny
	res, err := a.Run(sunny)
	require.NoError(t, err)
	// Effective 30°C → excess 21 → 20/21 h.
	assert.InDelta(t, 20.0/21, res.Estimate.ElapsedHours, 1e-9)

	shaded := baseScenario()
	shaded.Solar = model.SolarShaded
	res, err = a.Run(shaded)
	require.NoError(t, err)
	// Effective 23°C → excess 14.
	assert.InDelta(t, 20.0/14, res.Estimate.ElapsedHours, 1e-9)
}

func TestAdapter_Run_BodyCoolingCrossCheck(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Body = &model.BodyObservation{
		RectalTempC:  33,
		AmbientTempC: 25,
		BodyWeightKG: 70,
	}

	res, err := a.Run(sc)
	require.NoError(t, err)
	require.NotNil(t, res.Cooling)
	assert.Greater(t, res.Cooling.Hours, 0.0)
}

func TestAdapter_Run_CoolingNotApplicableIsNonFatal(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Body = &model.BodyObservation{
		RectalTempC:  20, // below ambient
		AmbientTempC: 25,
		BodyWeightKG: 70,
	}

	res, err := a.Run(sc)
	require.NoError(t, err)
	assert.Nil(t, res.Cooling)
}

func TestAdapter_Run_SearchExhausted(t *testing.T) {
	a := newTestAdapter(t)

	sc := baseScenario()
	sc.Weather = flatWeather(45, 96) // above the 35°C upper threshold

	_, err := a.Run(sc)
	assert.True(t, eris.Is(err, simulate.ErrSearchExhausted))
}

func TestAdapter_Run_Idempotent(t *testing.T) {
	a := newTestAdapter(t)

	first, err := a.Run(baseScenario())
	require.NoError(t, err)
	second, err := a.Run(baseScenario())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
