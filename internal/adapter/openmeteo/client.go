// Package openmeteo implements location resolution and forecast lookup
// against the Open-Meteo geocoding and forecast APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

// maxCandidates bounds the geocoder result list used for disambiguation.
const maxCandidates = 3

// Client calls the Open-Meteo geocoding and forecast endpoints with a shared
// circuit breaker and bounded retry.
type Client struct {
	geocodingURL string
	forecastURL  string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker
	retry        retryConfig
	logger       *slog.Logger
	metrics      *observability.Metrics
}

type retryConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewClient creates an Open-Meteo client with the given endpoint URLs and
// request timeout.
func NewClient(geocodingURL, forecastURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		httpClient:   &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		retry: retryConfig{
			maxRetries:      3,
			initialInterval: 500 * time.Millisecond,
			maxInterval:     5 * time.Second,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Resolve converts a free-text city/country pair into a canonical location.
// It requests up to three candidates and prefers, in order: the first whose
// country name contains the requested country (case-insensitive), the first
// whose country code equals it, and otherwise the upstream's top-ranked
// candidate. Returns domain.ErrLocationNotFound on zero candidates.
func (c *Client) Resolve(ctx context.Context, city, country string) (domain.ResolvedLocation, error) {
	params := url.Values{
		"name":     {city},
		"count":    {fmt.Sprintf("%d", maxCandidates)},
		"language": {"en"},
		"format":   {"json"},
	}

	body, err := c.doRequest(ctx, c.geocodingURL+"?"+params.Encode(), "geocoding")
	if err != nil {
		return domain.ResolvedLocation{}, err
	}

	var resp geocodingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("decode geocoding response: %w", err)
	}

	if len(resp.Results) == 0 {
		return domain.ResolvedLocation{}, fmt.Errorf("%w: %s", domain.ErrLocationNotFound, city)
	}

	chosen := selectCandidate(resp.Results, country)
	return domain.ResolvedLocation{
		City:        chosen.Name,
		Country:     chosen.Country,
		CountryCode: chosen.CountryCode,
		Latitude:    chosen.Latitude,
		Longitude:   chosen.Longitude,
	}, nil
}

// selectCandidate disambiguates geocoder candidates against the requested
// country. City names are not globally unique and users supply country names
// or codes interchangeably, hence the two ordered matching passes.
func selectCandidate(results []geoCandidate, country string) geoCandidate {
	for _, r := range results {
		if r.Country != "" && strings.Contains(strings.ToLower(r.Country), strings.ToLower(country)) {
			return r
		}
	}
	for _, r := range results {
		if r.CountryCode != "" && strings.EqualFold(r.CountryCode, country) {
			return r
		}
	}
	return results[0]
}

// FetchDaily retrieves the daily forecast series and the single
// current-conditions reading for the given coordinates and inclusive
// calendar-date range.
func (c *Client) FetchDaily(ctx context.Context, loc domain.ResolvedLocation, start, end string) (domain.DailyForecast, *domain.CurrentConditions, error) {
	params := url.Values{
		"latitude":   {fmt.Sprintf("%f", loc.Latitude)},
		"longitude":  {fmt.Sprintf("%f", loc.Longitude)},
		"daily":      {"temperature_2m_max,temperature_2m_min,weather_code,wind_speed_10m_max,wind_direction_10m_dominant"},
		"current":    {"relative_humidity_2m,surface_pressure"},
		"start_date": {start},
		"end_date":   {end},
		"timezone":   {"auto"},
	}

	body, err := c.doRequest(ctx, c.forecastURL+"?"+params.Encode(), "forecast")
	if err != nil {
		return domain.DailyForecast{}, nil, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.DailyForecast{}, nil, fmt.Errorf("decode forecast response: %w", err)
	}

	daily := domain.DailyForecast{
		Dates:         resp.Daily.Time,
		TempMax:       resp.Daily.TemperatureMax,
		TempMin:       resp.Daily.TemperatureMin,
		WeatherCodes:  resp.Daily.WeatherCode,
		WindSpeedMax:  resp.Daily.WindSpeedMax,
		WindDirection: resp.Daily.WindDirectionDominant,
	}

	var current *domain.CurrentConditions
	if resp.Current != nil {
		current = &domain.CurrentConditions{
			Humidity: resp.Current.RelativeHumidity,
			Pressure: resp.Current.SurfacePressure,
		}
	}

	return daily, current, nil
}

// doRequest executes a GET with circuit breaking and bounded exponential
// retry, returning the response body.
func (c *Client) doRequest(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		body, err := c.attempt(ctx, fullURL, endpoint)
		if err == nil {
			return body, nil
		}

		// Fail fast while the breaker is open; the fallback path handles it.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s circuit open: %w", endpoint, err)
		}

		lastErr = err
		if attempt >= c.retry.maxRetries {
			return nil, lastErr
		}

		delay := c.retry.initialInterval << attempt
		if delay > c.retry.maxInterval {
			delay = c.retry.maxInterval
		}
		c.logger.Debug("upstream request retrying",
			"endpoint", endpoint, "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) attempt(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request: %w", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("%s API error: status %d: %s", endpoint, resp.StatusCode, body)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Open-Meteo API response types.

type geocodingResponse struct {
	Results []geoCandidate `json:"results"`
}

type geoCandidate struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type forecastResponse struct {
	Daily struct {
		Time                  []string  `json:"time"`
		TemperatureMax        []float64 `json:"temperature_2m_max"`
		TemperatureMin        []float64 `json:"temperature_2m_min"`
		WeatherCode           []int     `json:"weather_code"`
		WindSpeedMax          []float64 `json:"wind_speed_10m_max"`
		WindDirectionDominant []float64 `json:"wind_direction_10m_dominant"`
	} `json:"daily"`
	Current *struct {
		RelativeHumidity float64 `json:"relative_humidity_2m"`
		SurfacePressure  float64 `json:"surface_pressure"`
	} `json:"current"`
}
