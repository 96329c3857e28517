package model

import "time"

// RunStatus represents the current state of an estimation run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusExhausted RunStatus = "exhausted"
)

// PMIEstimate is the terminal result of one estimation run.
type PMIEstimate struct {
	ElapsedHours         float64   `json:"elapsed_hours"`
	EstimatedTimeOfDeath time.Time `json:"estimated_time_of_death"`
	LowerBoundHours      float64   `json:"lower_bound_hours"`
	UpperBoundHours      float64   `json:"upper_bound_hours"`
	ConfidenceLevel      float64   `json:"confidence_level"`
	PIADelayHours        float64   `json:"pia_delay_hours"`
	TargetADH            float64   `json:"target_adh"`
	AccumulatedADH       float64   `json:"accumulated_adh"`
	// NightOviposition flags an estimated oviposition between 20:00 and
	// 06:00 local time. Blowflies rarely lay at night, so the true event
	// is usually the preceding dusk.
	NightOviposition bool `json:"night_oviposition"`
}

// CurvePoint is one sample of the ADH-vs-time curve, ordered from discovery
// backward. Downstream charting renders growth curves and plateau regions
// from these, so the engine exposes the full sequence, not just the
// terminal estimate.
type CurvePoint struct {
	Time           time.Time `json:"time"`
	ElapsedHours   float64   `json:"elapsed_hours"`
	CumulativeADH  float64   `json:"cumulative_adh"`
	StageIndex     int       `json:"stage_index"`
	BaseTempC      float64   `json:"base_temp_c"`
	EffectiveTempC float64   `json:"effective_temp_c"`
	MassHeatC      float64   `json:"mass_heat_c"`
}

// CoolingEstimate is the Henssge body-cooling cross-check result.
type CoolingEstimate struct {
	Hours         float64 `json:"hours"`
	IntervalHours float64 `json:"interval_hours"`
}

// RunResult bundles everything a report or API consumer needs from a run.
type RunResult struct {
	Estimate *PMIEstimate     `json:"estimate,omitempty"`
	Curve    []CurvePoint     `json:"curve"`
	Cooling  *CoolingEstimate `json:"cooling,omitempty"`
	Species  string           `json:"species"`
	Stage    string           `json:"stage"`
	Error    string           `json:"error,omitempty"`
}

// Run represents a persisted estimation run.
type Run struct {
	ID        string     `json:"id"`
	Scenario  Scenario   `json:"scenario"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
