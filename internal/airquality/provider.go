package airquality

import (
	"context"
)

// Geocoder resolves a free-text city name to a coordinate.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, city string) (Coordinate, error)
}

// PM25Fetcher retrieves hourly PM2.5 observations.
type PM25Fetcher interface {
	FetchPM25(ctx context.Context, coord Coordinate, r DateRange) ([]PM25Observation, error)
}

// WeatherFetcher retrieves hourly meteorological observations.
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, coord Coordinate, r DateRange) ([]MeteoObservation, error)
}
