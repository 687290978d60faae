package airquality

import "github.com/chamodk/air-quality-fusion/internal/geo"

// Normalization converts heterogeneous provider payloads into the common
// NormalizedReading shape. All functions are pure: they never mutate their
// input and never fail on malformed-but-present data; a nil input yields a
// nil reading, and missing optional fields default to zero values.

// openWeatherAQIConversion maps OpenWeatherMap's 1-5 AQI class onto the
// midpoint of the corresponding US EPA bucket.
var openWeatherAQIConversion = map[int]float64{
	1: 50,
	2: 100,
	3: 150,
	4: 200,
	5: 300,
}

// ConvertOpenWeatherAQI converts the 1-5 class to a 0-500 scale value.
// Unknown classes default to 50.
func ConvertOpenWeatherAQI(class int) float64 {
	if v, ok := openWeatherAQIConversion[class]; ok {
		return v
	}
	return 50
}

// NormalizeIQAir shapes an IQAir nearest-city result into an AQI reading.
func NormalizeIQAir(r *IQAirResult) *NormalizedReading {
	if r == nil {
		return nil
	}

	value := float64(r.AQIUS)
	if value < 0 {
		value = 0
	}

	return &NormalizedReading{
		Metric:      MetricAQI,
		Value:       value,
		Category:    AQICategory(value),
		Timestamp:   r.PollutionTS,
		Coordinates: copyCoordinate(r.Coordinates),
		Source:      SourceIQAir,
	}
}

// NormalizeOpenWeatherAQI shapes an OpenWeatherMap air_pollution result into
// an AQI reading on the 0-500 scale.
func NormalizeOpenWeatherAQI(r *OpenWeatherResult) *NormalizedReading {
	if r == nil {
		return nil
	}

	value := ConvertOpenWeatherAQI(r.AQIClass)

	return &NormalizedReading{
		Metric:      MetricAQI,
		Value:       value,
		Category:    AQICategory(value),
		Timestamp:   r.SampleTS,
		Coordinates: copyCoordinate(r.Coordinates),
		Source:      SourceOpenWeather,
	}
}

// NormalizeOpenWeatherUV shapes the optional UV part of an OpenWeatherMap
// result. Returns nil when the provider did not report a UV value.
func NormalizeOpenWeatherUV(r *OpenWeatherResult) *NormalizedReading {
	if r == nil || r.UVValue == nil {
		return nil
	}

	value := *r.UVValue
	if value < 0 {
		value = 0
	}

	return &NormalizedReading{
		Metric:      MetricUV,
		Value:       value,
		Category:    UVCategory(value),
		Timestamp:   r.SampleTS,
		Coordinates: copyCoordinate(r.Coordinates),
		Source:      SourceOpenWeather,
	}
}

// NormalizeWeatherAPIUV shapes a WeatherAPI current result into a UV reading.
func NormalizeWeatherAPIUV(r *WeatherAPIResult) *NormalizedReading {
	if r == nil {
		return nil
	}

	value := r.UVValue
	if value < 0 {
		value = 0
	}

	return &NormalizedReading{
		Metric:      MetricUV,
		Value:       value,
		Category:    UVCategory(value),
		Timestamp:   r.LastUpdated,
		Coordinates: copyCoordinate(r.Coordinates),
		Source:      SourceWeatherAPI,
	}
}

func copyCoordinate(c *geo.Coordinate) *geo.Coordinate {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
