package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
)

// ThresholdConfig holds the user-configured alert thresholds.
type ThresholdConfig struct {
	AQI int `json:"aqi" validate:"required,gte=1,lte=500"`
	UV  int `json:"uv" validate:"required,gte=1,lte=15"`
}

// DefaultThresholds returns the out-of-the-box thresholds.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{AQI: 150, UV: 8}
}

// Event is a single threshold breach detected in a fused snapshot.
type Event struct {
	ID              string            `json:"id"`
	Type            airquality.Metric `json:"type"`
	Level           string            `json:"level"`
	Value           int               `json:"value"`
	Threshold       int               `json:"threshold"`
	Recommendations []string          `json:"recommendations"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Evaluate compares a fused snapshot against the thresholds and returns
// zero, one or two events. An AQI event is emitted iff the fused AQI value
// exceeds the AQI threshold; likewise for UV. Each event carries only the
// recommendations relevant to its own metric. Evaluation does not
// deduplicate against history; rate limiting repeated triggers is the
// scheduler's concern.
func Evaluate(snapshot airquality.FusedSnapshot, thresholds ThresholdConfig) []Event {
	var events []Event

	if snapshot.AQI.Value > thresholds.AQI {
		events = append(events, Event{
			ID:              uuid.NewString(),
			Type:            airquality.MetricAQI,
			Level:           snapshot.AQI.Category,
			Value:           snapshot.AQI.Value,
			Threshold:       thresholds.AQI,
			Recommendations: airquality.RecommendationsForAQI(snapshot.AQI.Value),
			Timestamp:       snapshot.Timestamp,
		})
	}

	if snapshot.UV.Value > thresholds.UV {
		events = append(events, Event{
			ID:              uuid.NewString(),
			Type:            airquality.MetricUV,
			Level:           snapshot.UV.Category,
			Value:           snapshot.UV.Value,
			Threshold:       thresholds.UV,
			Recommendations: airquality.RecommendationsForUV(snapshot.UV.Value),
			Timestamp:       snapshot.Timestamp,
		})
	}

	return events
}
