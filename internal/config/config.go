package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/i474232898/pm25-forecast/internal/airquality/providers"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/observability"
)

type AppConfig struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=DEBUG INFO WARN ERROR"`

	// Outbound HTTP.
	HTTPTimeout     time.Duration `validate:"gt=0"`
	FetchMaxRetries int           `validate:"gte=0,lte=10"`

	// Upstream endpoints; overridable for tests and mirrors.
	Geocoder          string `validate:"oneof=openmeteo google"`
	GoogleAPIKey      string `validate:"required_if=Geocoder google"`
	GeocodingURL      string `validate:"required,url"`
	AirQualityURL     string `validate:"required,url"`
	WeatherArchiveURL string `validate:"required,url"`

	// Model and intermediate tables.
	ModelPath         string `validate:"required"`
	DataDir           string `validate:"required"`
	PredictWindowDays int    `validate:"gte=10"`

	// Periodic retraining; disabled when TrainCity is empty.
	TrainCity       string
	TrainWindowDays int           `validate:"gte=10"`
	RetrainInterval time.Duration `validate:"eq=0|gte=1m"` // 0 disables retraining

	// In-memory prediction history retention.
	HistoryMaxEntries int           `validate:"gte=0"` // max predictions per city (0 = unlimited)
	HistoryMaxAge     time.Duration `validate:"gte=0"` // max age of predictions (0 = unlimited)
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Infof("No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var errs *multierror.Error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = strings.ToUpper(getenvDefault("LOG_LEVEL", "INFO"))

	cfg.HTTPTimeout = getenvDuration("HTTP_TIMEOUT", 30*time.Second, &errs)
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 0)

	cfg.Geocoder = strings.ToLower(getenvDefault("GEOCODER", "openmeteo"))
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.GeocodingURL = getenvDefault("GEOCODING_URL", providers.DefaultGeocodingURL)
	cfg.AirQualityURL = getenvDefault("AIR_QUALITY_URL", providers.DefaultAirQualityURL)
	cfg.WeatherArchiveURL = getenvDefault("WEATHER_ARCHIVE_URL", providers.DefaultWeatherArchiveURL)

	cfg.ModelPath = getenvDefault("MODEL_PATH", "models/pm25_model.json")
	cfg.DataDir = getenvDefault("DATA_DIR", "data")
	cfg.PredictWindowDays = getenvInt("PREDICT_WINDOW_DAYS", 120)

	cfg.TrainCity = strings.TrimSpace(os.Getenv("TRAIN_CITY"))
	cfg.TrainWindowDays = getenvInt("TRAIN_WINDOW_DAYS", 365)
	cfg.RetrainInterval = getenvDuration("RETRAIN_INTERVAL", 24*time.Hour, &errs)

	cfg.HistoryMaxEntries = getenvInt("HISTORY_MAX_ENTRIES", 100)
	cfg.HistoryMaxAge = getenvDuration("HISTORY_MAX_AGE", 7*24*time.Hour, &errs)

	if err := validate.Struct(cfg); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		logger.Warnf("ignoring invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func getenvDuration(key string, def time.Duration, errs **multierror.Error) time.Duration {
	s := getenvDefault(key, def.String())
	d, err := time.ParseDuration(s)
	if err != nil {
		*errs = multierror.Append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

// ProviderOptions maps the upstream settings onto providers.Options.
func (c *AppConfig) ProviderOptions(metrics *observability.Metrics) providers.Options {
	return providers.Options{
		Geocoder:          c.Geocoder,
		GoogleAPIKey:      c.GoogleAPIKey,
		GeocodingURL:      c.GeocodingURL,
		AirQualityURL:     c.AirQualityURL,
		WeatherArchiveURL: c.WeatherArchiveURL,
		Timeout:           c.HTTPTimeout,
		MaxRetries:        c.FetchMaxRetries,
		Metrics:           metrics,
	}
}
