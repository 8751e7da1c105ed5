package openmeteo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-forecast-pipeline/internal/domain"
	"github.com/couchcryptid/weather-forecast-pipeline/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(geocodingURL, forecastURL string, maxRetries int) *Client {
	return &Client{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		breaker:      gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
		retry: retryConfig{
			maxRetries:      maxRetries,
			initialInterval: time.Millisecond,
			maxInterval:     5 * time.Millisecond,
		},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: observability.NewMetricsForTesting(),
	}
}

func geoJSON(t *testing.T, w http.ResponseWriter, resp geocodingResponse) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestClient_Resolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "London", r.URL.Query().Get("name"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		geoJSON(t, w, geocodingResponse{Results: []geoCandidate{
			{Name: "London", Country: "United Kingdom", CountryCode: "GB", Latitude: 51.50853, Longitude: -0.12574},
		}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 0)
	loc, err := c.Resolve(context.Background(), "London", "UK")
	require.NoError(t, err)

	assert.Equal(t, "London", loc.City)
	assert.Equal(t, "United Kingdom", loc.Country)
	assert.Equal(t, "GB", loc.CountryCode)
	assert.Equal(t, 51.50853, loc.Latitude)
	assert.Equal(t, -0.12574, loc.Longitude)
}

func TestClient_Resolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		geoJSON(t, w, geocodingResponse{})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 0)
	_, err := c.Resolve(context.Background(), "Nowhere", "XX")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

func TestClient_Resolve_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 0)
	_, err := c.Resolve(context.Background(), "London", "UK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_Resolve_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		geoJSON(t, w, geocodingResponse{Results: []geoCandidate{
			{Name: "London", Country: "United Kingdom", CountryCode: "GB"},
		}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 3)
	loc, err := c.Resolve(context.Background(), "London", "UK")
	require.NoError(t, err)
	assert.Equal(t, "London", loc.City)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSelectCandidate(t *testing.T) {
	candidates := []geoCandidate{
		{Name: "London", Country: "Canada", CountryCode: "CA"},
		{Name: "London", Country: "United Kingdom", CountryCode: "GB"},
		{Name: "London", Country: "United States", CountryCode: "US"},
	}

	tests := []struct {
		name        string
		country     string
		wantCountry string
	}{
		{"country name contains match", "kingdom", "United Kingdom"},
		{"country name case-insensitive", "UNITED KINGDOM", "United Kingdom"},
		{"country code match", "gb", "United Kingdom"},
		{"country code beats position", "US", "United States"},
		{"no match falls back to first", "France", "Canada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chosen := selectCandidate(candidates, tt.country)
			assert.Equal(t, tt.wantCountry, chosen.Country)
		})
	}
}

func TestSelectCandidate_NameMatchBeatsCodeMatch(t *testing.T) {
	// "India" is contained in the third candidate's country name, while the
	// second matches only by code. The name pass runs first.
	candidates := []geoCandidate{
		{Name: "Hyderabad", Country: "Pakistan", CountryCode: "PK"},
		{Name: "Hyderabad", Country: "Somewhere", CountryCode: "INDIA"},
		{Name: "Hyderabad", Country: "India", CountryCode: "IN"},
	}

	chosen := selectCandidate(candidates, "India")
	assert.Equal(t, "India", chosen.Country)
}

func TestClient_FetchDaily_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2026-08-29", q.Get("start_date"))
		assert.Equal(t, "2026-09-04", q.Get("end_date"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Contains(t, q.Get("daily"), "temperature_2m_max")
		assert.Contains(t, q.Get("current"), "relative_humidity_2m")

		w.Header().Set(headerContentType, contentTypeJSON)
		_, err := w.Write([]byte(`{
			"daily": {
				"time": ["2026-08-29", "2026-08-30"],
				"temperature_2m_max": [21.4, 18.9],
				"temperature_2m_min": [12.1, 10.2],
				"weather_code": [3, 61],
				"wind_speed_10m_max": [14.2, 22.7],
				"wind_direction_10m_dominant": [180, 225]
			},
			"current": {
				"relative_humidity_2m": 72,
				"surface_pressure": 1018.3
			}
		}`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 0)
	loc := domain.ResolvedLocation{Latitude: 51.5, Longitude: -0.12}

	daily, current, err := c.FetchDaily(context.Background(), loc, "2026-08-29", "2026-09-04")
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-08-29", "2026-08-30"}, daily.Dates)
	assert.Equal(t, []float64{21.4, 18.9}, daily.TempMax)
	assert.Equal(t, []float64{12.1, 10.2}, daily.TempMin)
	assert.Equal(t, []int{3, 61}, daily.WeatherCodes)
	assert.Equal(t, []float64{14.2, 22.7}, daily.WindSpeedMax)
	assert.Equal(t, []float64{180, 225}, daily.WindDirection)

	require.NotNil(t, current)
	assert.Equal(t, 72.0, current.Humidity)
	assert.Equal(t, 1018.3, current.Pressure)
}

func TestClient_FetchDaily_MissingCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, err := w.Write([]byte(`{"daily": {"time": ["2026-08-29"], "temperature_2m_max": [20], "temperature_2m_min": [10], "weather_code": [0]}}`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 0)
	daily, current, err := c.FetchDaily(context.Background(), domain.ResolvedLocation{}, "2026-08-29", "2026-09-04")
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Len(t, daily.Dates, 1)
}

func TestClient_FetchDaily_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte(`{not json`))
		require.NoError(t, err)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL, 0)
	_, _, err := c.FetchDaily(context.Background(), domain.ResolvedLocation{}, "2026-08-29", "2026-09-04")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode forecast response")
}
