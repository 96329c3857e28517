package weather

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mortis-lab/pmi-cli/internal/metrics"
	"github.com/mortis-lab/pmi-cli/internal/model"
	"github.com/mortis-lab/pmi-cli/internal/store"
)

// Fetcher retrieves a station series from an archive.
type Fetcher interface {
	FetchStation(ctx context.Context, station string) ([]model.WeatherSample, error)
}

// Service fetches station series with a persistent cache in front of the
// archive.
type Service struct {
	fetcher Fetcher
	store   store.Store
	ttl     time.Duration
}

// NewService creates a Service. A zero ttl disables expiry-based reuse in
// practice, so callers should pass the configured cache TTL.
func NewService(fetcher Fetcher, st store.Store, ttl time.Duration) *Service {
	return &Service{fetcher: fetcher, store: st, ttl: ttl}
}

// Series returns the hourly series for a station, from cache when fresh.
func (s *Service) Series(ctx context.Context, station string) ([]model.WeatherSample, error) {
	if cached, err := s.store.GetCachedSeries(ctx, station); err != nil {
		zap.L().Warn("weather: cache lookup failed", zap.String("station", station), zap.Error(err))
	} else if cached != nil {
		metrics.WeatherCacheHits.WithLabelValues("hit").Inc()
		zap.L().Debug("weather: cache hit",
			zap.String("station", station),
			zap.Int("samples", len(cached.Samples)),
		)
		return cached.Samples, nil
	}
	metrics.WeatherCacheHits.WithLabelValues("miss").Inc()

	samples, err := s.fetcher.FetchStation(ctx, station)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetCachedSeries(ctx, station, samples, s.ttl); err != nil {
		zap.L().Warn("weather: cache store failed", zap.String("station", station), zap.Error(err))
	}
	return samples, nil
}
