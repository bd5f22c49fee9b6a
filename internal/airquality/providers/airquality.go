package providers

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/logger"
)

// OpenMeteoAirQuality implements airquality.PM25Fetcher.
type OpenMeteoAirQuality struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoAirQuality(cfg HTTPClientConfig, baseURL string) *OpenMeteoAirQuality {
	if baseURL == "" {
		baseURL = DefaultAirQualityURL
	}
	return &OpenMeteoAirQuality{
		name:    "openmeteo-airquality",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: newBreaker("openmeteo-airquality"),
	}
}

func (p *OpenMeteoAirQuality) Name() string {
	return p.name
}

func (p *OpenMeteoAirQuality) FetchPM25(ctx context.Context, coord airquality.Coordinate, r airquality.DateRange) ([]airquality.PM25Observation, error) {
	values := rangeQuery(coord, r, "pm2_5")

	var payload struct {
		Hourly *struct {
			Time *[]string   `json:"time"`
			PM25 *[]*float64 `json:"pm2_5"`
		} `json:"hourly"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, err
	}

	if payload.Hourly == nil {
		return nil, fmt.Errorf("%s: field \"hourly\" absent: %w", p.name, airquality.ErrDataMissing)
	}
	if err := requireFields(p.name, map[string]bool{
		"hourly.time":  payload.Hourly.Time != nil,
		"hourly.pm2_5": payload.Hourly.PM25 != nil,
	}); err != nil {
		return nil, err
	}

	times, values25 := *payload.Hourly.Time, *payload.Hourly.PM25
	if err := requireLengths(p.name, len(times), map[string]int{"hourly.pm2_5": len(values25)}); err != nil {
		return nil, err
	}

	out := make([]airquality.PM25Observation, 0, len(times))
	skipped := 0
	for i, raw := range times {
		if values25[i] == nil {
			skipped++
			continue
		}
		ts, err := parseHourlyTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		out = append(out, airquality.PM25Observation{Time: ts, PM25: *values25[i]})
	}

	if skipped > 0 {
		logger.Debugf("%s: skipped %d null pm2.5 hours at %s", p.name, skipped, coord)
	}
	return out, nil
}
