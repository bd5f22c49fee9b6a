package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/model"
	"github.com/i474232898/pm25-forecast/internal/predictor"
	"github.com/i474232898/pm25-forecast/internal/store"
)

var validate = validator.New()

// Forecaster is satisfied by *predictor.Predictor.
type Forecaster interface {
	Predict(ctx context.Context, city string) (*predictor.Prediction, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, forecaster Forecaster, history *store.HistoryStore) {
	app.Get("/", func(c *fiber.Ctx) error {
		return renderPage(c, forecaster)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/predict", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		pred, err := forecaster.Predict(c.UserContext(), q.City)
		if err != nil {
			return fiber.NewError(StatusFor(err), predictor.UserMessage(err))
		}
		return c.JSON(pred)
	})

	v1.Get("/predictions/latest", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := history.GetLatest(q.City)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no predictions for requested city")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read prediction history")
		}

		return c.JSON(rec)
	})

	v1.Get("/predictions/cities", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"cities": history.Cities(),
		})
	})

	v1.Get("/predictions/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := history.GetRange(req.City.City, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no predictions for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read prediction history")
		}

		return c.JSON(fiber.Map{
			"city":        req.City.City,
			"from":        req.From,
			"to":          req.To,
			"predictions": records,
		})
	})
}

// StatusFor maps a prediction error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, predictor.ErrEmptyCity):
		return fiber.StatusBadRequest
	case errors.Is(err, airquality.ErrCityNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, airquality.ErrDataMissing), errors.Is(err, features.ErrInsufficientHistory):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, model.ErrArtifactNotFound), errors.Is(err, model.ErrFeatureOrderMismatch):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// cityQuery holds the city query parameter.
type cityQuery struct {
	City string `validate:"required,max=100"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	var q cityQuery

	// Query values alias fasthttp's request buffer unless the app is Immutable.
	q.City = utils.CopyString(c.Query("city"))

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City cityQuery
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	city, err := parseCityQuery(c)
	if err != nil {
		return err
	}
	h.City = city

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
