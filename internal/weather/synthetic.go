package weather

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// SyntheticOptions configures the diurnal series generator, used when no
// archive series covers the scene.
type SyntheticOptions struct {
	BaseTempC  float64   // daily mean temperature
	AmplitudeC float64   // half the daily swing
	Days       int       // number of days to generate, ending at End
	End        time.Time // last sample timestamp
}

// Synthesize generates an hourly diurnal series: a sinusoid around the
// base temperature peaking at 15:00 local time and bottoming out before
// dawn.
func Synthesize(opts SyntheticOptions) ([]model.WeatherSample, error) {
	if opts.Days <= 0 {
		return nil, eris.New("weather: synthetic days must be positive")
	}
	if opts.End.IsZero() {
		return nil, eris.New("weather: synthetic end time required")
	}

	hours := opts.Days * 24
	samples := make([]model.WeatherSample, 0, hours+1)
	for i := hours; i >= 0; i-- {
		t := opts.End.Add(-time.Duration(i) * time.Hour)
		hourOfDay := float64(t.Hour()) + float64(t.Minute())/60
		temp := opts.BaseTempC + opts.AmplitudeC*math.Cos(2*math.Pi*(hourOfDay-15)/24)
		samples = append(samples, model.WeatherSample{Time: t, TempC: temp})
	}
	return samples, nil
}
