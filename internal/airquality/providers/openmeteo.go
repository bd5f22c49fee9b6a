package providers

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/common"
)

// Open-Meteo hourly timestamps carry no zone; requests ask for GMT.
const openMeteoTimeLayout = "2006-01-02T15:04"

// Default public Open-Meteo endpoints.
const (
	DefaultGeocodingURL      = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultAirQualityURL     = "https://air-quality-api.open-meteo.com/v1/air-quality"
	DefaultWeatherArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
)

// rangeQuery builds the shared coordinate/date query parameters.
func rangeQuery(coord airquality.Coordinate, r airquality.DateRange, hourly string) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', 4, 64))
	values.Set("start_date", r.Start.UTC().Format(common.DateLayout))
	values.Set("end_date", r.End.UTC().Format(common.DateLayout))
	values.Set("hourly", hourly)
	values.Set("timezone", "GMT")
	return values
}

func parseHourlyTime(s string) (time.Time, error) {
	ts, err := time.ParseInLocation(openMeteoTimeLayout, s, time.UTC)
	if err != nil {
		// Some deployments answer with full RFC3339 timestamps.
		ts, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse hourly time %q: %w", s, err)
		}
	}
	return ts.UTC(), nil
}

// requireFields returns ErrDataMissing naming every absent field, or nil.
func requireFields(provider string, fields map[string]bool) error {
	var result *multierror.Error
	for _, name := range sortedKeys(fields) {
		if !fields[name] {
			result = multierror.Append(result, fmt.Errorf("%s: field %q absent: %w", provider, name, airquality.ErrDataMissing))
		}
	}
	return result.ErrorOrNil()
}

// requireLengths checks that every parallel array matches the time axis.
func requireLengths(provider string, n int, lengths map[string]int) error {
	var result *multierror.Error
	for _, name := range sortedKeys(lengths) {
		if lengths[name] != n {
			result = multierror.Append(result, fmt.Errorf("%s: %q has %d values, time has %d: %w",
				provider, name, lengths[name], n, airquality.ErrDataMissing))
		}
	}
	return result.ErrorOrNil()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
