package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/pm25-forecast/internal/observability"
)

// RegisterOps wires the health and Prometheus endpoints.
func RegisterOps(app *fiber.App, service string, metrics *observability.Metrics) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": service,
		})
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}
}
