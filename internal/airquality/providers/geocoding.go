package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/common"
)

// OpenMeteoGeocoder implements airquality.Geocoder with the Open-Meteo name search.
type OpenMeteoGeocoder struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoGeocoder(cfg HTTPClientConfig, baseURL string) *OpenMeteoGeocoder {
	if baseURL == "" {
		baseURL = DefaultGeocodingURL
	}
	return &OpenMeteoGeocoder{
		name:    "openmeteo-geocoding",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newBreaker("openmeteo-geocoding"),
	}
}

func (g *OpenMeteoGeocoder) Name() string {
	return g.name
}

func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, city string) (airquality.Coordinate, error) {
	values := url.Values{}
	values.Set("name", city)
	values.Set("count", "1")
	values.Set("format", "json")

	var payload struct {
		Results []struct {
			Name      string   `json:"name"`
			Country   string   `json:"country"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
		} `json:"results"`
	}

	if err := getJSON(ctx, g.httpCfg, g.circuit, g.baseURL+"?"+values.Encode(), &payload); err != nil {
		return airquality.Coordinate{}, err
	}

	// The API omits "results" entirely when nothing matches.
	if len(payload.Results) == 0 {
		return airquality.Coordinate{}, fmt.Errorf("%q: %w", city, airquality.ErrCityNotFound)
	}

	first := payload.Results[0]
	if err := requireFields(g.name, map[string]bool{
		"latitude":  first.Latitude != nil,
		"longitude": first.Longitude != nil,
	}); err != nil {
		return airquality.Coordinate{}, err
	}

	return airquality.Coordinate{Latitude: *first.Latitude, Longitude: *first.Longitude}, nil
}

// GoogleGeocoder implements airquality.Geocoder with the Google Geocoding API.
// The underlying client keeps its API key in package state, so only one key
// can be active per process.
type GoogleGeocoder struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google geocoding api key is not configured")
	}
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{lookup: geocoder.Geocoding}, nil
}

func (g *GoogleGeocoder) Name() string {
	return "google-geocoding"
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (airquality.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return airquality.Coordinate{}, err
	}

	loc, err := g.lookup(geocoder.Address{City: strings.TrimSpace(city)})
	if err != nil {
		if common.HasAny(err.Error(), "zero_results", "no results", "not found") {
			return airquality.Coordinate{}, fmt.Errorf("%q: %w", city, airquality.ErrCityNotFound)
		}
		return airquality.Coordinate{}, fmt.Errorf("google geocoding: %w", err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return airquality.Coordinate{}, fmt.Errorf("%q: %w", city, airquality.ErrCityNotFound)
	}

	return airquality.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}
