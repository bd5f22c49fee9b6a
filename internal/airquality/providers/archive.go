package providers

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/logger"
)

// OpenMeteoArchive implements airquality.WeatherFetcher with the historical weather archive.
type OpenMeteoArchive struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoArchive(cfg HTTPClientConfig, baseURL string) *OpenMeteoArchive {
	if baseURL == "" {
		baseURL = DefaultWeatherArchiveURL
	}
	return &OpenMeteoArchive{
		name:    "openmeteo-archive",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newBreaker("openmeteo-archive"),
	}
}

func (p *OpenMeteoArchive) Name() string {
	return p.name
}

func (p *OpenMeteoArchive) FetchWeather(ctx context.Context, coord airquality.Coordinate, r airquality.DateRange) ([]airquality.MeteoObservation, error) {
	values := rangeQuery(coord, r, "temperature_2m,relative_humidity_2m,windspeed_10m")

	var payload struct {
		Hourly *struct {
			Time        *[]string   `json:"time"`
			Temperature *[]*float64 `json:"temperature_2m"`
			Humidity    *[]*float64 `json:"relative_humidity_2m"`
			WindSpeed   *[]*float64 `json:"windspeed_10m"`
		} `json:"hourly"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	if h == nil {
		return nil, fmt.Errorf("%s: field \"hourly\" absent: %w", p.name, airquality.ErrDataMissing)
	}
	if err := requireFields(p.name, map[string]bool{
		"hourly.time":                 h.Time != nil,
		"hourly.temperature_2m":       h.Temperature != nil,
		"hourly.relative_humidity_2m": h.Humidity != nil,
		"hourly.windspeed_10m":        h.WindSpeed != nil,
	}); err != nil {
		return nil, err
	}

	times := *h.Time
	temps, hums, winds := *h.Temperature, *h.Humidity, *h.WindSpeed
	if err := requireLengths(p.name, len(times), map[string]int{
		"hourly.temperature_2m":       len(temps),
		"hourly.relative_humidity_2m": len(hums),
		"hourly.windspeed_10m":        len(winds),
	}); err != nil {
		return nil, err
	}

	out := make([]airquality.MeteoObservation, 0, len(times))
	skipped := 0
	for i, raw := range times {
		// The archive lags real time by a few days and reports those hours as null.
		if temps[i] == nil || hums[i] == nil || winds[i] == nil {
			skipped++
			continue
		}
		ts, err := parseHourlyTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		out = append(out, airquality.MeteoObservation{
			Time:             ts,
			Temperature:      *temps[i],
			RelativeHumidity: *hums[i],
			WindSpeed:        *winds[i],
		})
	}

	if skipped > 0 {
		logger.Debugf("%s: skipped %d incomplete weather hours at %s", p.name, skipped, coord)
	}
	return out, nil
}
