// Command fetch downloads hourly PM2.5 and weather for a city into the
// data directory as CSV tables.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/airquality/providers"
	"github.com/i474232898/pm25-forecast/internal/common"
	"github.com/i474232898/pm25-forecast/internal/config"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/pipeline"
)

func main() {
	city := flag.String("city", "Delhi", "City to fetch")
	from := flag.String("from", "2024-01-01", "First date (YYYY-MM-DD)")
	to := flag.String("to", "2024-01-10", "Last date (YYYY-MM-DD)")
	dataDir := flag.String("data-dir", "", "Output directory (default DATA_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	start, err := common.ParseDate(*from)
	if err != nil {
		logger.Fatalf("invalid -from: %v", err)
	}
	end, err := common.ParseDate(*to)
	if err != nil {
		logger.Fatalf("invalid -to: %v", err)
	}

	service, err := providers.NewService(cfg.ProviderOptions(nil))
	if err != nil {
		logger.Fatalf("failed to build providers: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	p := pipeline.New(service, pipeline.Options{DataDir: cfg.DataDir}, nil, nil)
	h, err := p.FetchToCSV(ctx, *city, airquality.DateRange{Start: start, End: end})
	if err != nil {
		logger.Fatalf("fetch failed: %v", err)
	}
	logger.Infof("%s (%s): %d pm2.5 hours, %d weather hours", h.City, h.Coordinate, len(h.PM25), len(h.Meteo))
}
