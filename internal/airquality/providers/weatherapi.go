package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
	"github.com/chamodk/air-quality-fusion/internal/geo"
)

// WeatherAPIClient implements the airquality.WeatherAPIClient interface
// against WeatherAPI.com's current.json endpoint.
type WeatherAPIClient struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIClient(client *http.Client, apiKey string) *WeatherAPIClient {
	return &WeatherAPIClient{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (c *WeatherAPIClient) Name() string {
	return c.name
}

func (c *WeatherAPIClient) Fetch(ctx context.Context, loc geo.Coordinate) (*airquality.WeatherAPIResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("weatherapi: %w", ErrMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", c.apiKey)
		values.Set("q", fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude))

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"location"`
		Current struct {
			UV               float64 `json:"uv"`
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	ts := time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	if payload.Current.LastUpdatedEpoch == 0 {
		ts = time.Now().UTC()
	}

	return &airquality.WeatherAPIResult{
		Coordinates: &geo.Coordinate{
			Latitude:  payload.Location.Lat,
			Longitude: payload.Location.Lon,
		},
		UVValue:     payload.Current.UV,
		LastUpdated: ts,
	}, nil
}
