package airquality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamodk/air-quality-fusion/internal/geo"
)

func TestNormalizeNilInputs(t *testing.T) {
	assert.Nil(t, NormalizeIQAir(nil))
	assert.Nil(t, NormalizeOpenWeatherAQI(nil))
	assert.Nil(t, NormalizeOpenWeatherUV(nil))
	assert.Nil(t, NormalizeWeatherAPIUV(nil))
}

func TestNormalizeIQAir(t *testing.T) {
	ts := time.Now().UTC()
	raw := &IQAirResult{
		City:        "Colombo",
		Coordinates: &geo.Coordinate{Latitude: 6.9, Longitude: 79.8},
		AQIUS:       155,
		PollutionTS: ts,
	}

	r := NormalizeIQAir(raw)
	require.NotNil(t, r)

	assert.Equal(t, MetricAQI, r.Metric)
	assert.Equal(t, 155.0, r.Value)
	assert.Equal(t, "Unhealthy", r.Category)
	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, SourceIQAir, r.Source)
	require.NotNil(t, r.Coordinates)

	// The reading owns a copy of the coordinates; the input is not shared.
	r.Coordinates.Latitude = 0
	assert.Equal(t, 6.9, raw.Coordinates.Latitude)
}

func TestNormalizeIQAirClampsNegativeValue(t *testing.T) {
	r := NormalizeIQAir(&IQAirResult{AQIUS: -5})
	require.NotNil(t, r)
	assert.Zero(t, r.Value)
	assert.Equal(t, "Good", r.Category)
}

func TestConvertOpenWeatherAQIClasses(t *testing.T) {
	tests := []struct {
		class int
		want  float64
	}{
		{1, 50},
		{2, 100},
		{3, 150},
		{4, 200},
		{5, 300},
		{0, 50},  // unknown class defaults
		{9, 50},  // unknown class defaults
		{-1, 50}, // unknown class defaults
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConvertOpenWeatherAQI(tt.class), "class %d", tt.class)
	}
}

func TestNormalizeOpenWeatherAQI(t *testing.T) {
	ts := time.Now().UTC()
	r := NormalizeOpenWeatherAQI(&OpenWeatherResult{AQIClass: 4, SampleTS: ts})
	require.NotNil(t, r)

	assert.Equal(t, 200.0, r.Value)
	assert.Equal(t, "Unhealthy", r.Category)
	assert.Equal(t, SourceOpenWeather, r.Source)
}

func TestNormalizeOpenWeatherUVMissing(t *testing.T) {
	assert.Nil(t, NormalizeOpenWeatherUV(&OpenWeatherResult{AQIClass: 2}))
}

func TestNormalizeOpenWeatherUVPresent(t *testing.T) {
	uv := 7.4
	r := NormalizeOpenWeatherUV(&OpenWeatherResult{AQIClass: 2, UVValue: &uv})
	require.NotNil(t, r)

	assert.Equal(t, MetricUV, r.Metric)
	assert.Equal(t, 7.4, r.Value)
	assert.Equal(t, "Very High", r.Category)
}

func TestNormalizeWeatherAPIUV(t *testing.T) {
	ts := time.Now().UTC()
	r := NormalizeWeatherAPIUV(&WeatherAPIResult{UVValue: 2, LastUpdated: ts})
	require.NotNil(t, r)

	assert.Equal(t, MetricUV, r.Metric)
	assert.Equal(t, 2.0, r.Value)
	assert.Equal(t, "Low", r.Category)
	assert.Equal(t, SourceWeatherAPI, r.Source)
}

func TestUVCategoryBreakpoints(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "Low"},
		{2, "Low"},
		{3, "Moderate"},
		{5, "Moderate"},
		{6, "High"},
		{7, "High"},
		{8, "Very High"},
		{10, "Very High"},
		{11, "Extreme"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UVCategory(tt.value), "uv %v", tt.value)
	}
}
