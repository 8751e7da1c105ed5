package domain

// weatherCode pairs the user-facing condition label with its description.
type weatherCode struct {
	Condition   string
	Description string
}

// weatherCodes maps WMO weather interpretation codes to condition/description
// pairs, matching the subset Open-Meteo emits for daily forecasts.
var weatherCodes = map[int]weatherCode{
	0:  {"Clear", "Clear sky"},
	1:  {"Clear", "Mainly clear"},
	2:  {"Clouds", "Partly cloudy"},
	3:  {"Clouds", "Overcast"},
	45: {"Fog", "Fog"},
	48: {"Fog", "Depositing rime fog"},
	51: {"Drizzle", "Light drizzle"},
	53: {"Drizzle", "Moderate drizzle"},
	55: {"Drizzle", "Dense drizzle"},
	61: {"Rain", "Slight rain"},
	63: {"Rain", "Moderate rain"},
	65: {"Rain", "Heavy rain"},
	71: {"Snow", "Slight snow fall"},
	73: {"Snow", "Moderate snow fall"},
	75: {"Snow", "Heavy snow fall"},
	80: {"Rain", "Slight rain showers"},
	81: {"Rain", "Moderate rain showers"},
	82: {"Rain", "Violent rain showers"},
	95: {"Thunderstorm", "Thunderstorm"},
	96: {"Thunderstorm", "Thunderstorm with slight hail"},
	99: {"Thunderstorm", "Thunderstorm with heavy hail"},
}

// DecodeWeatherCode maps a numeric WMO code to a (condition, description)
// pair. Unmapped codes resolve to ("Unknown", "Unknown weather") so a new
// upstream code never fails normalization.
func DecodeWeatherCode(code int) (condition, description string) {
	if wc, ok := weatherCodes[code]; ok {
		return wc.Condition, wc.Description
	}
	return "Unknown", "Unknown weather"
}
