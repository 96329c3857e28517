// Package store persists estimation runs and cached weather series.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mortis-lab/pmi-cli/internal/model"
)

// ErrRunNotFound is returned when a run ID does not exist in the store.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	SpeciesID string          `json:"species_id,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// WeatherCache is a stored station series with its freshness window.
type WeatherCache struct {
	ID        string                `json:"id"`
	Station   string                `json:"station"`
	Samples   []model.WeatherSample `json:"samples"`
	FetchedAt time.Time             `json:"fetched_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// Store defines the persistence interface for the estimation pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, scenario model.Scenario) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Weather series cache
	GetCachedSeries(ctx context.Context, station string) (*WeatherCache, error)
	SetCachedSeries(ctx context.Context, station string, samples []model.WeatherSample, ttl time.Duration) error
	DeleteExpiredSeries(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
