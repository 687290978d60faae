package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
	"github.com/chamodk/air-quality-fusion/internal/geo"
)

// OpenWeatherClient implements the airquality.OpenWeatherClient interface
// against OpenWeatherMap's air_pollution and uvi endpoints.
type OpenWeatherClient struct {
	name         string
	apiKey       string
	pollutionURL string
	uvURL        string
	httpCfg      HTTPClientConfig
	circuit      *gobreaker.CircuitBreaker
}

func NewOpenWeatherClient(client *http.Client, apiKey string) *OpenWeatherClient {
	return &OpenWeatherClient{
		name:         "openweather",
		apiKey:       apiKey,
		pollutionURL: "https://api.openweathermap.org/data/2.5/air_pollution",
		uvURL:        "https://api.openweathermap.org/data/2.5/uvi",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("openweather"),
	}
}

func (c *OpenWeatherClient) Name() string {
	return c.name
}

// Fetch retrieves the air pollution reading and then the UV index. A UV
// failure degrades the result (UVValue stays nil) rather than failing the
// whole call.
func (c *OpenWeatherClient) Fetch(ctx context.Context, loc geo.Coordinate) (*airquality.OpenWeatherResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather: %w", ErrMissingAPIKey)
	}

	result, err := c.fetchPollution(ctx, loc)
	if err != nil {
		return nil, err
	}

	uv, err := c.fetchUV(ctx, loc)
	if err != nil {
		log.Printf("provider %s: uv fetch failed, continuing without uv: %v", c.name, err)
	} else {
		result.UVValue = &uv
	}

	return result, nil
}

func (c *OpenWeatherClient) fetchPollution(ctx context.Context, loc geo.Coordinate) (*airquality.OpenWeatherResult, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", c.pollutionURL, c.queryValues(loc).Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Coord struct {
			Lon float64 `json:"lon"`
			Lat float64 `json:"lat"`
		} `json:"coord"`
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components map[string]float64 `json:"components"`
			Dt         int64              `json:"dt"`
		} `json:"list"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if len(payload.List) == 0 {
		return nil, fmt.Errorf("openweather returned no pollution samples")
	}

	sample := payload.List[0]

	ts := time.Unix(sample.Dt, 0).UTC()
	if sample.Dt == 0 {
		ts = time.Now().UTC()
	}

	return &airquality.OpenWeatherResult{
		Coordinates: &geo.Coordinate{
			Latitude:  payload.Coord.Lat,
			Longitude: payload.Coord.Lon,
		},
		AQIClass:   sample.Main.AQI,
		Components: sample.Components,
		SampleTS:   ts,
	}, nil
}

func (c *OpenWeatherClient) fetchUV(ctx context.Context, loc geo.Coordinate) (float64, error) {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", c.uvURL, c.queryValues(loc).Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Value float64 `json:"value"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}

	return payload.Value, nil
}

func (c *OpenWeatherClient) queryValues(loc geo.Coordinate) url.Values {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", loc.Latitude))
	values.Set("lon", fmt.Sprintf("%f", loc.Longitude))
	values.Set("appid", c.apiKey)
	return values
}
