package airquality

import (
	"time"

	"github.com/chamodk/air-quality-fusion/internal/geo"
)

// Metric identifies which quantity a reading measures.
type Metric string

const (
	MetricAQI Metric = "aqi"
	MetricUV  Metric = "uv"
)

// Source identifiers used in fused results.
const (
	SourceIQAir       = "iqair"
	SourceOpenWeather = "openweather"
	SourceWeatherAPI  = "weatherapi"
	SourceHybrid      = "hybrid"
	SourceDefault     = "default"
)

// Display names listed in FusedSnapshot.Sources for providers that
// contributed raw data to a fetch cycle.
const (
	ProviderIQAir       = "IQAir"
	ProviderOpenWeather = "OpenWeatherMap"
	ProviderWeatherAPI  = "WeatherAPI"
)

// RiskLevel is an ordinal severity classification, increasing left to right.
type RiskLevel string

const (
	RiskGood               RiskLevel = "good"
	RiskModerate           RiskLevel = "moderate"
	RiskUnhealthySensitive RiskLevel = "unhealthy_sensitive"
	RiskUnhealthy          RiskLevel = "unhealthy"
	RiskVeryUnhealthy      RiskLevel = "very_unhealthy"
)

var riskOrder = []RiskLevel{
	RiskGood,
	RiskModerate,
	RiskUnhealthySensitive,
	RiskUnhealthy,
	RiskVeryUnhealthy,
}

// severity returns the ordinal position of a risk level.
func (r RiskLevel) severity() int {
	for i, level := range riskOrder {
		if level == r {
			return i
		}
	}
	return 0
}

// MoreSevere returns the more severe of two risk levels.
func MoreSevere(a, b RiskLevel) RiskLevel {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// IQAirResult mirrors the response of IQAir's nearest_city endpoint
// (current.pollution.aqius on the US EPA 0-500 scale).
type IQAirResult struct {
	City        string          `json:"city"`
	State       string          `json:"state"`
	Country     string          `json:"country"`
	Coordinates *geo.Coordinate `json:"coordinates,omitempty"`
	AQIUS       int             `json:"aqius"`
	PollutionTS time.Time       `json:"pollutionTs"`
}

// OpenWeatherResult mirrors OpenWeatherMap's air_pollution response
// (list[0].main.aqi on the 1-5 class scale) plus the optional UV index
// obtained from the uvi endpoint.
type OpenWeatherResult struct {
	Coordinates *geo.Coordinate    `json:"coordinates,omitempty"`
	AQIClass    int                `json:"aqiClass"`
	Components  map[string]float64 `json:"components,omitempty"`
	UVValue     *float64           `json:"uvValue,omitempty"`
	SampleTS    time.Time          `json:"sampleTs"`
}

// WeatherAPIResult mirrors WeatherAPI's current.json response (current.uv).
type WeatherAPIResult struct {
	Coordinates *geo.Coordinate `json:"coordinates,omitempty"`
	UVValue     float64         `json:"uvValue"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// NormalizedReading is the common shape every provider payload is converted
// into before fusion. Value is always >= 0.
type NormalizedReading struct {
	Metric      Metric          `json:"metric"`
	Value       float64         `json:"value"`
	Category    string          `json:"category"`
	Timestamp   time.Time       `json:"timestamp"`
	Coordinates *geo.Coordinate `json:"coordinates,omitempty"`
	Source      string          `json:"source"`
}

// FusedAQI is the fused AQI estimate with its confidence weighting.
type FusedAQI struct {
	Value      int     `json:"value"`
	Category   string  `json:"category"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// FusedUV is the fused UV index estimate.
type FusedUV struct {
	Value    int    `json:"value"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

// FusedSnapshot is the immutable result of one fetch cycle.
type FusedSnapshot struct {
	AQI             FusedAQI       `json:"aqi"`
	UV              FusedUV        `json:"uv"`
	AtmosphereScore int            `json:"atmosphereScore"`
	RiskLevel       RiskLevel      `json:"riskLevel"`
	Recommendations []string       `json:"recommendations"`
	Sources         []string       `json:"sources"`
	Timestamp       time.Time      `json:"timestamp"`
	Coordinates     geo.Coordinate `json:"coordinates"`
}

// HistoryEntry is the condensed per-cycle record kept in the rolling
// 7-day time series.
type HistoryEntry struct {
	Timestamp       time.Time      `json:"timestamp"`
	Coordinates     geo.Coordinate `json:"coordinates"`
	AQI             int            `json:"aqi"`
	UV              int            `json:"uv"`
	AtmosphereScore int            `json:"atmosphereScore"`
	AQICategory     string         `json:"aqiCategory"`
	UVCategory      string         `json:"uvCategory"`
}

// HistoryEntryFromSnapshot condenses a fused snapshot for the time series.
func HistoryEntryFromSnapshot(s FusedSnapshot) HistoryEntry {
	return HistoryEntry{
		Timestamp:       s.Timestamp,
		Coordinates:     s.Coordinates,
		AQI:             s.AQI.Value,
		UV:              s.UV.Value,
		AtmosphereScore: s.AtmosphereScore,
		AQICategory:     s.AQI.Category,
		UVCategory:      s.UV.Category,
	}
}

// AQICategory maps a US EPA AQI value to its category name using the fixed
// breakpoints [50, 100, 150, 200, 300].
func AQICategory(value float64) string {
	switch {
	case value <= 50:
		return "Good"
	case value <= 100:
		return "Moderate"
	case value <= 150:
		return "Unhealthy for Sensitive Groups"
	case value <= 200:
		return "Unhealthy"
	case value <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// UVCategory maps a UV index value to its category using the fixed
// breakpoints [2, 5, 7, 10].
func UVCategory(value float64) string {
	switch {
	case value <= 2:
		return "Low"
	case value <= 5:
		return "Moderate"
	case value <= 7:
		return "High"
	case value <= 10:
		return "Very High"
	default:
		return "Extreme"
	}
}

// aqiRiskLevel maps an AQI value to the shared 5-level risk scale.
func aqiRiskLevel(value float64) RiskLevel {
	switch {
	case value <= 50:
		return RiskGood
	case value <= 100:
		return RiskModerate
	case value <= 150:
		return RiskUnhealthySensitive
	case value <= 200:
		return RiskUnhealthy
	default:
		return RiskVeryUnhealthy
	}
}

// uvRiskLevel maps a UV index value to the shared 5-level risk scale.
func uvRiskLevel(value float64) RiskLevel {
	switch {
	case value <= 2:
		return RiskGood
	case value <= 5:
		return RiskModerate
	case value <= 7:
		return RiskUnhealthySensitive
	case value <= 10:
		return RiskUnhealthy
	default:
		return RiskVeryUnhealthy
	}
}
