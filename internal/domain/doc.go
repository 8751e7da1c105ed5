// Package domain models normalized multi-day weather forecasts.
//
// # Data Source
//
// Forecasts come from the Open-Meteo APIs: a geocoding lookup resolves a
// free-text city/country pair to coordinates, and the forecast endpoint
// returns daily aggregates (max/min temperature, WMO weather code, wind) plus
// a single current-conditions reading (humidity, surface pressure) for a
// fixed 7-day window anchored at the process-local date.
//
// # Conventions
//
// Weather codes follow the WMO interpretation table; see [DecodeWeatherCode].
// Codes outside the table decode to ("Unknown", "Unknown weather") rather
// than failing.
//
// Temperature is the arithmetic mean of the day's max and min, rounded to two
// decimal places. Humidity and pressure are taken from the current-conditions
// reading and reused across all seven days, defaulting to 60% and 1013 hPa
// when the reading is absent. Wind speed and direction default to 0.
//
// # Natural Key
//
// A record is identified by (city, country, date), the storage conflict
// target for idempotent last-write-wins upserts. The Kafka message key
// ("{city}-{country}-{date}") is built from the city and country strings as
// requested, before geocoder canonicalization, pinning one request's week of
// records to a single partition. Duplicate delivery is harmless end to end.
//
// # Fallback Data
//
// When the upstream source is unreachable the pipeline stays live: exactly
// seven synthetic records dated sequentially from today are produced instead,
// carrying plausible randomized values and the marker description
// "Mock weather data". See [FallbackRecords].
package domain
