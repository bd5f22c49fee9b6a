package airquality

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/i474232898/pm25-forecast/internal/logger"
)

// Service resolves cities and fetches both hourly series for them.
type Service struct {
	geocoder Geocoder
	pm25     PM25Fetcher
	weather  WeatherFetcher
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, pm25 PM25Fetcher, weather WeatherFetcher) *Service {
	return &Service{
		geocoder: geocoder,
		pm25:     pm25,
		weather:  weather,
	}
}

// Geocode resolves city through the configured geocoder.
func (s *Service) Geocode(ctx context.Context, city string) (Coordinate, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Coordinate{}, errors.New("city must not be empty")
	}

	coord, err := s.geocoder.Geocode(ctx, city)
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode %q via %s: %w", city, s.geocoder.Name(), err)
	}
	if !coord.Valid() {
		return Coordinate{}, fmt.Errorf("geocode %q: coordinate %s out of range: %w", city, coord, ErrDataMissing)
	}
	return coord, nil
}

// FetchHistory geocodes city once and fetches PM2.5 then weather for r.
// Either series may be empty; callers decide how to report that.
func (s *Service) FetchHistory(ctx context.Context, city string, r DateRange) (*History, error) {
	if r.End.Before(r.Start) {
		return nil, fmt.Errorf("invalid date range: end %s before start %s", r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}

	coord, err := s.Geocode(ctx, city)
	if err != nil {
		return nil, err
	}
	logger.Debugf("FetchHistory: %s resolved to %s", city, coord)

	pm, err := s.pm25.FetchPM25(ctx, coord, r)
	if err != nil {
		return nil, fmt.Errorf("fetch pm2.5 for %q: %w", city, err)
	}

	met, err := s.weather.FetchWeather(ctx, coord, r)
	if err != nil {
		return nil, fmt.Errorf("fetch weather for %q: %w", city, err)
	}

	logger.Infof("fetched %d pm2.5 and %d weather hours for %s (%s..%s)",
		len(pm), len(met), city, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))

	return &History{
		City:       strings.TrimSpace(city),
		Coordinate: coord,
		Range:      r,
		PM25:       pm,
		Meteo:      met,
	}, nil
}
