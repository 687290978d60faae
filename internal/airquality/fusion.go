package airquality

import (
	"math"
	"time"

	"github.com/chamodk/air-quality-fusion/internal/geo"
)

// Distance-tier base weights for the IQAir station relative to the user.
// A station closer than 2 km dominates; past 10 km OpenWeather's modeled
// value is trusted more than the distant station measurement.
const (
	weightClose  = 0.9 // d < 2 km
	weightMedium = 0.7 // 2 km <= d <= 10 km
	weightFar    = 0.3 // d > 10 km

	// Flat weight applied when IQAir reports no station coordinates.
	weightNoStation = 0.5
)

// Freshness factors reduce a reading's influence as it ages.
const (
	freshnessFresh = 1.0 // age < 1h
	freshnessStale = 0.5 // 1h <= age < 6h
	freshnessOld   = 0.2 // age >= 6h
)

// Defaults returned when no source contributed to a metric.
const (
	defaultAQIValue = 50
	defaultUVValue  = 3
)

// Readings carries the normalized per-provider inputs of one fetch cycle.
// Any field may be nil when the provider failed or omitted the metric.
type Readings struct {
	IQAir          *NormalizedReading
	OpenWeatherAQI *NormalizedReading
	OpenWeatherUV  *NormalizedReading
	WeatherAPIUV   *NormalizedReading
}

// Engine implements the hybrid fusion algorithm: it combines normalized
// readings into single AQI and UV estimates using distance-based and
// freshness-based weights, then derives the atmosphere health score, risk
// level and recommendations.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an Engine using wall-clock time for freshness weighting.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Fuse combines the available readings into one snapshot for the given user
// location. Missing optional data never causes an error; with no sources at
// all the result carries the documented defaults.
func (e *Engine) Fuse(readings Readings, userLocation geo.Coordinate) FusedSnapshot {
	now := e.now()

	aqi := e.fuseAQI(readings, userLocation, now)
	uv := e.fuseUV(readings)

	score := atmosphereScore(aqi.Value, uv.Value)
	risk := MoreSevere(aqiRiskLevel(float64(aqi.Value)), uvRiskLevel(float64(uv.Value)))

	recs := append(RecommendationsForAQI(aqi.Value), RecommendationsForUV(uv.Value)...)

	return FusedSnapshot{
		AQI:             aqi,
		UV:              uv,
		AtmosphereScore: score,
		RiskLevel:       risk,
		Recommendations: recs,
		Sources:         contributingSources(readings),
		Timestamp:       now.UTC(),
		Coordinates:     userLocation,
	}
}

// fuseAQI applies the distance and freshness weighting between the IQAir
// station value and OpenWeather's converted class value.
func (e *Engine) fuseAQI(readings Readings, userLocation geo.Coordinate, now time.Time) FusedAQI {
	iqAir := readings.IQAir
	openWeather := readings.OpenWeatherAQI

	if iqAir == nil && openWeather == nil {
		return FusedAQI{
			Value:    defaultAQIValue,
			Category: AQICategory(defaultAQIValue),
			Source:   SourceDefault,
		}
	}

	var iqAirWeight, openWeatherWeight float64

	if iqAir != nil {
		if iqAir.Coordinates != nil {
			d := geo.DistanceKm(userLocation, *iqAir.Coordinates)
			iqAirWeight = distanceWeight(d) * freshnessFactor(now, iqAir.Timestamp)
		} else {
			iqAirWeight = weightNoStation
		}
	}

	if openWeather != nil {
		openWeatherWeight = (1 - iqAirWeight) * freshnessFactor(now, openWeather.Timestamp)
	}

	var finalAQI float64
	source := SourceHybrid

	switch {
	case iqAirWeight > 0 && openWeatherWeight > 0:
		finalAQI = (iqAir.Value*iqAirWeight + openWeather.Value*openWeatherWeight) /
			(iqAirWeight + openWeatherWeight)
	case iqAirWeight > 0:
		finalAQI = iqAir.Value
		source = SourceIQAir
	case openWeatherWeight > 0:
		finalAQI = openWeather.Value
		source = SourceOpenWeather
	}

	value := int(math.Round(finalAQI))

	return FusedAQI{
		Value:      value,
		Category:   AQICategory(float64(value)),
		Source:     source,
		Confidence: math.Max(iqAirWeight, openWeatherWeight),
	}
}

// fuseUV averages whichever UV sources are present.
func (e *Engine) fuseUV(readings Readings) FusedUV {
	var values []float64
	var source string

	if r := readings.OpenWeatherUV; r != nil {
		values = append(values, r.Value)
		source = SourceOpenWeather
	}
	if r := readings.WeatherAPIUV; r != nil {
		values = append(values, r.Value)
		source = SourceWeatherAPI
	}

	if len(values) == 0 {
		return FusedUV{
			Value:    defaultUVValue,
			Category: UVCategory(defaultUVValue),
			Source:   SourceDefault,
		}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))

	if len(values) > 1 {
		source = SourceHybrid
	}

	value := int(math.Round(avg))

	return FusedUV{
		Value:    value,
		Category: UVCategory(float64(value)),
		Source:   source,
	}
}

// distanceWeight selects the IQAir base weight by distance tier. The 2 km
// boundary belongs to the medium tier and the 10 km boundary to the medium
// tier as well (d < 2 close, d <= 10 medium, d > 10 far).
func distanceWeight(distanceKm float64) float64 {
	switch {
	case distanceKm < 2:
		return weightClose
	case distanceKm <= 10:
		return weightMedium
	default:
		return weightFar
	}
}

// freshnessFactor derives the age multiplier for a reading timestamp.
func freshnessFactor(now, ts time.Time) float64 {
	age := now.Sub(ts)
	switch {
	case age < time.Hour:
		return freshnessFresh
	case age < 6*time.Hour:
		return freshnessStale
	default:
		return freshnessOld
	}
}

// atmosphereScore combines AQI and UV into one 0-100 health-friendliness
// score, weighting air quality heavier than UV.
func atmosphereScore(aqi, uv int) int {
	aqiSub := math.Max(0, 100-float64(aqi)/5)
	uvSub := math.Max(0, 100-float64(uv)*8)

	score := math.Round(aqiSub*0.7 + uvSub*0.3)
	return int(math.Min(100, math.Max(0, score)))
}

// RecommendationsForAQI returns the health recommendations for an AQI value.
// Only the highest matching bucket contributes.
func RecommendationsForAQI(value int) []string {
	switch {
	case value > 150:
		return []string{
			"Avoid outdoor activities",
			"Keep windows and doors closed",
			"Use air purifiers if available",
		}
	case value > 100:
		return []string{
			"Limit outdoor activities",
			"Sensitive groups should avoid outdoor exercise",
		}
	default:
		return nil
	}
}

// RecommendationsForUV returns the health recommendations for a UV index
// value. Only the highest matching bucket contributes.
func RecommendationsForUV(value int) []string {
	switch {
	case value > 8:
		return []string{
			"Avoid sun exposure during peak hours (10 AM - 4 PM)",
			"Use sunscreen with SPF 30+",
			"Wear protective clothing and hat",
		}
	case value > 6:
		return []string{
			"Use sunscreen and seek shade during midday",
		}
	default:
		return nil
	}
}

// contributingSources lists provider display names that supplied any data.
func contributingSources(readings Readings) []string {
	var sources []string
	if readings.IQAir != nil {
		sources = append(sources, ProviderIQAir)
	}
	if readings.OpenWeatherAQI != nil || readings.OpenWeatherUV != nil {
		sources = append(sources, ProviderOpenWeather)
	}
	if readings.WeatherAPIUV != nil {
		sources = append(sources, ProviderWeatherAPI)
	}
	return sources
}
