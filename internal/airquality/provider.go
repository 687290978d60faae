package airquality

import (
	"context"

	"github.com/chamodk/air-quality-fusion/internal/geo"
)

// The three provider clients the fetch pipeline fans out to. Each call may
// fail independently (timeout, HTTP error, malformed payload); the pipeline
// treats any failure as "no data from this source", never as fatal for the
// whole cycle.

// IQAirClient fetches the nearest-station air quality reading.
type IQAirClient interface {
	Name() string
	Fetch(ctx context.Context, loc geo.Coordinate) (*IQAirResult, error)
}

// OpenWeatherClient fetches the air pollution class and, when available,
// the UV index for a coordinate.
type OpenWeatherClient interface {
	Name() string
	Fetch(ctx context.Context, loc geo.Coordinate) (*OpenWeatherResult, error)
}

// WeatherAPIClient fetches the current UV index for a coordinate.
type WeatherAPIClient interface {
	Name() string
	Fetch(ctx context.Context, loc geo.Coordinate) (*WeatherAPIResult, error)
}
