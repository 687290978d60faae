package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// AppConfig is the process configuration, read from environment variables.
type AppConfig struct {
	IQAirAPIKey       string
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	// FetchInterval is the minimum time between fetch cycles.
	FetchInterval time.Duration

	// HTTPTimeout applies to outbound provider calls.
	HTTPTimeout time.Duration

	// DataDir is where the file-backed key-value store lives.
	DataDir string

	// Default location used when no live positioning is available.
	DefaultLatitude  float64 `validate:"gte=-90,lte=90"`
	DefaultLongitude float64 `validate:"gte=-180,lte=180"`
	DefaultLocation  string

	// Optional geocoding of a configured city instead of fixed coordinates.
	GeocoderAPIKey  string
	LocationCity    string
	LocationCountry string

	// CacheStaleAfter is the staleness ceiling for the latest snapshot.
	CacheStaleAfter time.Duration

	// HistoryRetention bounds the rolling time-series window.
	HistoryRetention time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.IQAirAPIKey = os.Getenv("IQAIR_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if cfg.CacheStaleAfter, err = getenvDuration("CACHE_STALE_AFTER", "2h"); err != nil {
		return nil, fmt.Errorf("invalid CACHE_STALE_AFTER: %w", err)
	}
	if cfg.HistoryRetention, err = getenvDuration("HISTORY_RETENTION", "168h"); err != nil {
		return nil, fmt.Errorf("invalid HISTORY_RETENTION: %w", err)
	}

	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.Port = getenvDefault("PORT", "8080")

	// Default to Colombo when no location is configured.
	cfg.DefaultLatitude = getenvFloat("DEFAULT_LATITUDE", 6.9271)
	cfg.DefaultLongitude = getenvFloat("DEFAULT_LONGITUDE", 79.8612)
	cfg.DefaultLocation = getenvDefault("DEFAULT_LOCATION_NAME", "Colombo, Sri Lanka")
	cfg.LocationCity = os.Getenv("LOCATION_CITY")
	cfg.LocationCountry = os.Getenv("LOCATION_COUNTRY")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.warnMissingKeys()

	return cfg, nil
}

// warnMissingKeys logs a warning per missing provider credential. A missing
// key is not fatal; the provider simply behaves as always-failing.
func (c *AppConfig) warnMissingKeys() {
	keys := map[string]string{
		"IQAIR_API_KEY":       c.IQAirAPIKey,
		"OPENWEATHER_API_KEY": c.OpenWeatherAPIKey,
		"WEATHERAPI_API_KEY":  c.WeatherAPIKey,
	}
	for name, value := range keys {
		if value == "" {
			log.Printf("WARN: %s is not set; that provider will contribute no data", name)
		}
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}
