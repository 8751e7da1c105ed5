package domain

import (
	"errors"
	"fmt"
)

// DateLayout is the calendar-date wire format (ISO 8601, no time component).
const DateLayout = "2006-01-02"

// ForecastDays is the fixed window length: today plus six following days.
const ForecastDays = 7

// ErrLocationNotFound reports that the geocoder returned zero candidates.
var ErrLocationNotFound = errors.New("location not found")

// ResolvedLocation is the canonical result of geocoding a free-text
// city/country pair. Produced once per request and never persisted directly.
type ResolvedLocation struct {
	City        string
	Country     string
	CountryCode string
	Latitude    float64
	Longitude   float64
}

// WeatherRecord is the unit of transport and storage: one normalized
// forecast day for one location. (City, Country, Date) is the natural key.
type WeatherRecord struct {
	City             string  `json:"city"`
	Country          string  `json:"country"`
	Date             string  `json:"date"` // DateLayout
	Temperature      float64 `json:"temperature"`
	Humidity         int     `json:"humidity"`
	Pressure         float64 `json:"pressure"`
	WindSpeed        float64 `json:"wind_speed"`
	WindDirection    int     `json:"wind_direction"`
	WeatherCondition string  `json:"weather_condition"`
	Description      string  `json:"description"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
}

// MessageKey builds the stream partition key for a record. All seven records
// of one request share the city/country prefix, so a location's week lands on
// one partition in date order.
func MessageKey(city, country, date string) string {
	return fmt.Sprintf("%s-%s-%s", city, country, date)
}

// Batch source tags. Callers never branch on them beyond logging; both
// variants satisfy the same seven-record contract.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// ForecastBatch is the tagged result of a forecast fetch: the records plus
// whether they came from the upstream source or the synthetic fallback path.
type ForecastBatch struct {
	Records []WeatherRecord
	Source  string
	Reason  string // populated on fallback with the upstream failure
}
