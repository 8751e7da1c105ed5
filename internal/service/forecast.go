// Package service orchestrates the ingest side of the pipeline: location
// resolution, forecast normalization, and the fail-open fallback path.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

// Geocoder resolves a free-text city/country pair to a canonical location.
type Geocoder interface {
	Resolve(ctx context.Context, city, country string) (domain.ResolvedLocation, error)
}

// ForecastSource fetches the daily forecast series for resolved coordinates
// over an inclusive calendar-date range.
type ForecastSource interface {
	FetchDaily(ctx context.Context, loc domain.ResolvedLocation, start, end string) (domain.DailyForecast, *domain.CurrentConditions, error)
}

// ForecastService fetches and normalizes 7-day forecasts. It never fails:
// any upstream error yields a synthetic fallback batch so downstream
// consumers always receive exactly seven records per request.
type ForecastService struct {
	geocoder Geocoder
	source   ForecastSource
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewForecastService wires the resolver and forecast source.
func NewForecastService(geocoder Geocoder, source ForecastSource, logger *slog.Logger, metrics *observability.Metrics) *ForecastService {
	return &ForecastService{
		geocoder: geocoder,
		source:   source,
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchForecast resolves the location and assembles one normalized record
// per day of the 7-day window anchored at today. On any upstream failure it
// returns a fallback batch tagged with the reason instead of an error.
func (s *ForecastService) FetchForecast(ctx context.Context, city, country string) domain.ForecastBatch {
	batch, err := s.fetchLive(ctx, city, country)
	if err != nil {
		s.logger.Warn("forecast fetch failed, serving fallback data",
			"city", city, "country", country, "error", err)
		s.metrics.ForecastRequests.WithLabelValues(domain.SourceFallback).Inc()
		return domain.ForecastBatch{
			Records: domain.FallbackRecords(city, country),
			Source:  domain.SourceFallback,
			Reason:  err.Error(),
		}
	}

	s.metrics.ForecastRequests.WithLabelValues(domain.SourceLive).Inc()
	return batch
}

func (s *ForecastService) fetchLive(ctx context.Context, city, country string) (domain.ForecastBatch, error) {
	loc, err := s.geocoder.Resolve(ctx, city, country)
	if err != nil {
		return domain.ForecastBatch{}, fmt.Errorf("resolve location: %w", err)
	}

	s.logger.Info("location resolved",
		"city", loc.City, "country", loc.Country, "country_code", loc.CountryCode,
		"lat", loc.Latitude, "lon", loc.Longitude)

	start, end := domain.DateWindow()
	daily, current, err := s.source.FetchDaily(ctx, loc, start, end)
	if err != nil {
		return domain.ForecastBatch{}, fmt.Errorf("fetch forecast: %w", err)
	}

	records := domain.BuildRecords(loc, city, country, daily, current)
	if len(records) != domain.ForecastDays {
		return domain.ForecastBatch{}, fmt.Errorf("incomplete forecast: got %d of %d days", len(records), domain.ForecastDays)
	}

	return domain.ForecastBatch{Records: records, Source: domain.SourceLive}, nil
}
