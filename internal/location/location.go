package location

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/chamodk/air-quality-fusion/internal/geo"
)

// Fix is a resolved user position. Approximate is set when the resolver fell
// back to a default location instead of a live position, so downstream
// display can indicate an approximate location.
type Fix struct {
	Coordinate  geo.Coordinate `json:"coordinate"`
	Name        string         `json:"name,omitempty"`
	Approximate bool           `json:"approximate"`
}

// Resolver produces the current location for a fetch cycle.
type Resolver interface {
	Resolve(ctx context.Context) (Fix, error)
}

// StaticResolver always returns a fixed coordinate.
type StaticResolver struct {
	Fix Fix
}

func NewStaticResolver(coord geo.Coordinate, name string) *StaticResolver {
	return &StaticResolver{Fix: Fix{Coordinate: coord, Name: name}}
}

func (r *StaticResolver) Resolve(ctx context.Context) (Fix, error) {
	return r.Fix, nil
}

// FallbackResolver tries a primary resolver and substitutes a deterministic
// default fix, flagged approximate, when the primary fails.
type FallbackResolver struct {
	Primary Resolver
	Default Fix
}

func NewFallbackResolver(primary Resolver, defaultFix Fix) *FallbackResolver {
	defaultFix.Approximate = true
	return &FallbackResolver{Primary: primary, Default: defaultFix}
}

func (r *FallbackResolver) Resolve(ctx context.Context) (Fix, error) {
	fix, err := r.Primary.Resolve(ctx)
	if err != nil {
		log.Printf("location: primary resolver failed, using default location: %v", err)
		return r.Default, nil
	}
	return fix, nil
}

// GeocodeResolver resolves a configured city/country to coordinates via the
// Google geocoding API. The result is cached after the first success since
// the configured place does not move.
type GeocodeResolver struct {
	city    string
	country string

	mu     sync.Mutex
	cached *Fix
}

func NewGeocodeResolver(apiKey, city, country string) *GeocodeResolver {
	geocoder.ApiKey = apiKey
	return &GeocodeResolver{city: city, country: country}
}

func (r *GeocodeResolver) Resolve(ctx context.Context) (Fix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return *r.cached, nil
	}

	loc, err := geocoder.Geocoding(geocoder.Address{
		City:    r.city,
		Country: r.country,
	})
	if err != nil {
		return Fix{}, fmt.Errorf("failed to geocode %s, %s: %w", r.city, r.country, err)
	}

	fix := Fix{
		Coordinate: geo.Coordinate{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		},
		Name: fmt.Sprintf("%s, %s", r.city, r.country),
	}
	r.cached = &fix
	return fix, nil
}
