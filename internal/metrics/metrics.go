// Package metrics exposes Prometheus instrumentation for the estimation
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EstimationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmi_estimations_total",
			Help: "Total PMI estimation runs by species and outcome",
		},
		[]string{"species", "status"},
	)

	EstimationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmi_estimation_duration_seconds",
			Help:    "Wall-clock duration of estimation runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"species"},
	)

	EstimatedPMIHours = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pmi_estimated_hours",
			Help:    "Distribution of estimated post-mortem intervals in hours",
			Buckets: []float64{6, 12, 24, 48, 72, 120, 168, 336, 720},
		},
		[]string{"species"},
	)

	WeatherCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmi_weather_cache_hits_total",
			Help: "Weather series cache hits and misses",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pmi_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
