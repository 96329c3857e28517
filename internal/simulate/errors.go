// Package simulate implements the accumulated-degree-hours estimation
// engine: thermal timeline correction, maggot-mass self-heating, growth
// rate clamping, ADH integration, and the inverse solve from observed
// stage back to elapsed time.
package simulate

import "github.com/rotisserie/eris"

// Engine contract sentinels. The scenario adapter validates input before a
// run starts; the engine fails loudly on violations instead of repairing
// them.
var (
	// ErrSearchExhausted means the target stage was never reached within
	// the search horizon, e.g. the temperature profile never exceeded the
	// species' lower developmental threshold.
	ErrSearchExhausted = eris.New("simulate: search horizon exhausted before target stage")

	// ErrEmptyWeather means the timeline was built without any samples.
	ErrEmptyWeather = eris.New("simulate: weather series is empty")

	// ErrUnorderedWeather means sample timestamps are not strictly
	// increasing.
	ErrUnorderedWeather = eris.New("simulate: weather timestamps not strictly increasing")

	// ErrMalformedEventWindow means a scene event ends before it starts or
	// lies outside the simulation window.
	ErrMalformedEventWindow = eris.New("simulate: malformed scene event window")
)
