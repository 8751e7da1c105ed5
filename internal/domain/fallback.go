package domain

import "math/rand/v2"

// FallbackDescription marks synthetic records so stored rows are
// distinguishable from live forecast data.
const FallbackDescription = "Mock weather data"

var fallbackConditions = []string{"Clear", "Clouds", "Rain", "Snow"}

// FallbackRecords produces exactly seven synthetic records dated sequentially
// from today, carrying plausible randomized values and the fallback marker
// description. Used when the upstream source is unreachable so the pipeline
// never returns an empty batch. Coordinates are left unset.
func FallbackRecords(city, country string) []WeatherRecord {
	today := clock.Now()
	records := make([]WeatherRecord, ForecastDays)
	for i := range records {
		records[i] = WeatherRecord{
			City:             city,
			Country:          country,
			Date:             today.AddDate(0, 0, i).Format(DateLayout),
			Temperature:      float64(rand.IntN(31) + 5),    // 5..35 C
			Humidity:         rand.IntN(41) + 40,            // 40..80 %
			Pressure:         float64(rand.IntN(51) + 1000), // 1000..1050 hPa
			WindSpeed:        float64(rand.IntN(21) + 5),    // 5..25
			WindDirection:    rand.IntN(361),
			WeatherCondition: fallbackConditions[rand.IntN(len(fallbackConditions))],
			Description:      FallbackDescription,
		}
	}
	return records
}
