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

// IQAirClient implements the airquality.IQAirClient interface against
// IQAir's nearest_city endpoint.
type IQAirClient struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIQAirClient(client *http.Client, apiKey string) *IQAirClient {
	return &IQAirClient{
		name:    "iqair",
		apiKey:  apiKey,
		baseURL: "https://api.airvisual.com/v2/nearest_city",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("iqair"),
	}
}

func (c *IQAirClient) Name() string {
	return c.name
}

func (c *IQAirClient) Fetch(ctx context.Context, loc geo.Coordinate) (*airquality.IQAirResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("iqair: %w", ErrMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", loc.Latitude))
		values.Set("lon", fmt.Sprintf("%f", loc.Longitude))
		values.Set("key", c.apiKey)

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
		Data   struct {
			City     string `json:"city"`
			State    string `json:"state"`
			Country  string `json:"country"`
			Location struct {
				// GeoJSON point: [longitude, latitude].
				Coordinates []float64 `json:"coordinates"`
			} `json:"location"`
			Current struct {
				Pollution struct {
					TS    string `json:"ts"`
					AQIUS int    `json:"aqius"`
				} `json:"pollution"`
			} `json:"current"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	if payload.Status != "success" {
		return nil, fmt.Errorf("iqair returned status %q", payload.Status)
	}

	ts, err := time.Parse(time.RFC3339, payload.Data.Current.Pollution.TS)
	if err != nil {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	result := &airquality.IQAirResult{
		City:        payload.Data.City,
		State:       payload.Data.State,
		Country:     payload.Data.Country,
		AQIUS:       payload.Data.Current.Pollution.AQIUS,
		PollutionTS: ts,
	}

	if coords := payload.Data.Location.Coordinates; len(coords) == 2 {
		result.Coordinates = &geo.Coordinate{
			Latitude:  coords[1],
			Longitude: coords[0],
		}
	}

	return result, nil
}
