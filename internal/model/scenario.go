// Package model defines the scenario and result types shared across the
// estimation pipeline.
package model

import "time"

// SolarExposure describes how much direct sun the remains received.
type SolarExposure string

const (
	SolarSunny  SolarExposure = "sunny"
	SolarShaded SolarExposure = "shaded"
	SolarNone   SolarExposure = "none"
)

// Concealment categorizes insect access to the remains. It drives the
// pre-colonization delay added to the development time.
type Concealment string

const (
	ConcealmentOpen    Concealment = "open"
	ConcealmentWrapped Concealment = "wrapped"
	ConcealmentBuried  Concealment = "buried"
)

// EventCause tags why a scene event changed the local temperature.
type EventCause string

const (
	CauseEnclosed EventCause = "enclosed"
	CauseShaded   EventCause = "shaded"
	CauseHeated   EventCause = "heated"
	CauseMoved    EventCause = "moved"
)

// SceneEvent is a time-bounded temperature adjustment at the scene, such as
// a body kept in a car trunk or next to an electric blanket. Delta events
// add to the running temperature; Override events replace it.
type SceneEvent struct {
	Start    time.Time  `json:"start" yaml:"start"`
	End      time.Time  `json:"end" yaml:"end"`
	DeltaC   float64    `json:"delta_c,omitempty" yaml:"delta_c,omitempty"`
	Override *float64   `json:"override_c,omitempty" yaml:"override_c,omitempty"`
	Cause    EventCause `json:"cause,omitempty" yaml:"cause,omitempty"`
}

// Contains reports whether t falls inside the event window [Start, End).
func (e SceneEvent) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// WeatherSample is a single ambient temperature observation.
type WeatherSample struct {
	Time  time.Time `json:"time" yaml:"time"`
	TempC float64   `json:"temp_c" yaml:"temp_c"`
}

// ToxicologyFactor is a growth rate modifier caused by a drug found in the
// remains. Multiplier > 1 accelerates development, < 1 retards it.
type ToxicologyFactor struct {
	Drug       string  `json:"drug" yaml:"drug"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// SoilParams describes a burial. When MeasuredTempC is set it replaces the
// air temperature outright; otherwise depth-based damping toward the window
// mean is applied.
type SoilParams struct {
	DepthCM       float64  `json:"depth_cm" yaml:"depth_cm"`
	MeasuredTempC *float64 `json:"measured_temp_c,omitempty" yaml:"measured_temp_c,omitempty"`
}

// BodyObservation holds the body-cooling measurements taken at discovery,
// used for the independent Henssge early-interval cross-check.
type BodyObservation struct {
	RectalTempC    float64 `json:"rectal_temp_c" yaml:"rectal_temp_c"`
	AmbientTempC   float64 `json:"ambient_temp_c" yaml:"ambient_temp_c"`
	BodyWeightKG   float64 `json:"body_weight_kg" yaml:"body_weight_kg"`
	ClothingFactor float64 `json:"clothing_factor" yaml:"clothing_factor"`
}

// Scenario is the fully resolved input record for one estimation run. It is
// assembled strictly before the run starts; the engine never fetches data.
// DiscoveryTime should carry the scene-local zone: the night-oviposition
// flag is evaluated in that zone.
type Scenario struct {
	CaseID        string             `json:"case_id,omitempty" yaml:"case_id,omitempty"`
	Investigator  string             `json:"investigator,omitempty" yaml:"investigator,omitempty"`
	SpeciesID     string             `json:"species_id" yaml:"species_id"`
	ObservedStage string             `json:"observed_stage" yaml:"observed_stage"`
	DiscoveryTime time.Time          `json:"discovery_time" yaml:"discovery_time"`
	Weather       []WeatherSample    `json:"weather" yaml:"weather"`
	SceneEvents   []SceneEvent       `json:"scene_events,omitempty" yaml:"scene_events,omitempty"`
	Toxicology    []ToxicologyFactor `json:"toxicology,omitempty" yaml:"toxicology,omitempty"`
	Concealment   Concealment        `json:"concealment,omitempty" yaml:"concealment,omitempty"`
	Solar         SolarExposure      `json:"solar_exposure,omitempty" yaml:"solar_exposure,omitempty"`
	Soil          *SoilParams        `json:"soil,omitempty" yaml:"soil,omitempty"`
	Body          *BodyObservation   `json:"body,omitempty" yaml:"body,omitempty"`
}
