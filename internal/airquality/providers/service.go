package providers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/observability"
)

// Options selects and configures the upstream providers.
type Options struct {
	Geocoder          string // "openmeteo" or "google"
	GoogleAPIKey      string
	GeocodingURL      string
	AirQualityURL     string
	WeatherArchiveURL string
	Timeout           time.Duration
	MaxRetries        int
	Metrics           *observability.Metrics
}

// NewService builds an airquality.Service backed by Open-Meteo, with the
// geocoder chosen by opts.Geocoder.
func NewService(opts Options) (*airquality.Service, error) {
	cfg := DefaultHTTPConfig(&http.Client{Timeout: opts.Timeout})
	cfg.Backoff.MaxRetries = opts.MaxRetries
	cfg.Metrics = opts.Metrics

	var geo airquality.Geocoder
	switch opts.Geocoder {
	case "", "openmeteo":
		geo = NewOpenMeteoGeocoder(cfg, opts.GeocodingURL)
	case "google":
		g, err := NewGoogleGeocoder(opts.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		geo = g
	default:
		return nil, fmt.Errorf("unknown geocoder %q", opts.Geocoder)
	}

	return airquality.NewService(
		geo,
		NewOpenMeteoAirQuality(cfg, opts.AirQualityURL),
		NewOpenMeteoArchive(cfg, opts.WeatherArchiveURL),
	), nil
}
