package domain

import "math"

// DailyForecast holds the per-day series returned by the forecast source.
// Slices are parallel, indexed by day; wind slices may be shorter or empty.
type DailyForecast struct {
	Dates         []string
	TempMax       []float64
	TempMin       []float64
	WeatherCodes  []int
	WindSpeedMax  []float64
	WindDirection []float64
}

// CurrentConditions is the single point-in-time reading the source returns
// alongside the daily series. It is fetched once and reused for every day of
// the window.
type CurrentConditions struct {
	Humidity float64
	Pressure float64
}

// DateWindow returns the inclusive 7-day forecast window anchored at today,
// formatted as calendar dates.
func DateWindow() (start, end string) {
	today := clock.Now()
	return today.Format(DateLayout), today.AddDate(0, 0, ForecastDays-1).Format(DateLayout)
}

// WindowDates returns each date of the current 7-day window in order.
func WindowDates() []string {
	today := clock.Now()
	dates := make([]string, ForecastDays)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, i).Format(DateLayout)
	}
	return dates
}

// BuildRecords assembles one normalized WeatherRecord per forecast day.
// The resolved canonical names win over the requested free-text names when
// present. Humidity and pressure default to 60 and 1013 when the current
// reading is absent or zero; wind fields default to 0.
func BuildRecords(loc ResolvedLocation, city, country string, daily DailyForecast, current *CurrentConditions) []WeatherRecord {
	recordCity := loc.City
	if recordCity == "" {
		recordCity = city
	}
	recordCountry := loc.Country
	if recordCountry == "" {
		recordCountry = country
	}

	humidity, pressure := 60.0, 1013.0
	if current != nil {
		if current.Humidity != 0 {
			humidity = current.Humidity
		}
		if current.Pressure != 0 {
			pressure = current.Pressure
		}
	}

	records := make([]WeatherRecord, 0, len(daily.Dates))
	for i, date := range daily.Dates {
		condition, description := DecodeWeatherCode(valueAt(daily.WeatherCodes, i))

		records = append(records, WeatherRecord{
			City:             recordCity,
			Country:          recordCountry,
			Date:             date,
			Temperature:      round2((valueAt(daily.TempMax, i) + valueAt(daily.TempMin, i)) / 2),
			Humidity:         int(math.Round(humidity)),
			Pressure:         pressure,
			WindSpeed:        valueAt(daily.WindSpeedMax, i),
			WindDirection:    int(valueAt(daily.WindDirection, i)),
			WeatherCondition: condition,
			Description:      description,
			Latitude:         loc.Latitude,
			Longitude:        loc.Longitude,
		})
	}
	return records
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func valueAt[T int | float64](s []T, i int) T {
	if i < len(s) {
		return s[i]
	}
	var zero T
	return zero
}
