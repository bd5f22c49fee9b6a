package predictor

import (
	"errors"
	"fmt"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/model"
)

var (
	// ErrEmptyCity is returned when no city name was given.
	ErrEmptyCity = errors.New("city must not be empty")

	// ErrNoPM25Data is returned when the window holds no PM2.5 hours.
	ErrNoPM25Data = fmt.Errorf("no pm2.5 observations in window: %w", airquality.ErrDataMissing)

	// ErrNoMeteoData is returned when the window holds no meteorology hours.
	ErrNoMeteoData = fmt.Errorf("no meteorological observations in window: %w", airquality.ErrDataMissing)
)

// Prediction outcomes used as metric labels.
const (
	OutcomeOK               = "ok"
	OutcomeInvalid          = "invalid"
	OutcomeNotFound         = "not_found"
	OutcomeNoData           = "no_data"
	OutcomeInsufficient     = "insufficient_history"
	OutcomeModelUnavailable = "model_unavailable"
	OutcomeUpstream         = "upstream_error"
)

// Outcome classifies err into one of the Outcome constants.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrEmptyCity):
		return OutcomeInvalid
	case errors.Is(err, airquality.ErrCityNotFound):
		return OutcomeNotFound
	case errors.Is(err, airquality.ErrDataMissing):
		return OutcomeNoData
	case errors.Is(err, features.ErrInsufficientHistory):
		return OutcomeInsufficient
	case errors.Is(err, model.ErrArtifactNotFound), errors.Is(err, model.ErrFeatureOrderMismatch):
		return OutcomeModelUnavailable
	default:
		return OutcomeUpstream
	}
}

// UserMessage turns a Predict error into text fit for the front end.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCity):
		return "Please enter a city name."
	case errors.Is(err, airquality.ErrCityNotFound):
		return "City not found. Check the spelling and try again."
	case errors.Is(err, ErrNoPM25Data):
		return "No PM2.5 data is available for this location over the recent period."
	case errors.Is(err, ErrNoMeteoData):
		return "No weather data is available for this location over the recent period."
	case errors.Is(err, airquality.ErrDataMissing):
		return "The data service returned an incomplete response for this location."
	case errors.Is(err, features.ErrInsufficientHistory):
		return fmt.Sprintf("Not enough recent data to build stable features (need at least %d days).", features.MinRows)
	case errors.Is(err, model.ErrArtifactNotFound):
		return "No trained model is available yet. Train the model and try again."
	case errors.Is(err, model.ErrFeatureOrderMismatch):
		return "The saved model does not match the current feature set. Retrain the model."
	default:
		return "Could not reach the air-quality service. Please try again later."
	}
}
