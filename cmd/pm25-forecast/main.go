package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/pm25-forecast/internal/airquality/providers"
	httpapi "github.com/i474232898/pm25-forecast/internal/api/http"
	"github.com/i474232898/pm25-forecast/internal/config"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/model"
	"github.com/i474232898/pm25-forecast/internal/observability"
	"github.com/i474232898/pm25-forecast/internal/pipeline"
	"github.com/i474232898/pm25-forecast/internal/predictor"
	"github.com/i474232898/pm25-forecast/internal/scheduler"
	"github.com/i474232898/pm25-forecast/internal/store"
)

const serviceName = "pm25-forecast"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	metrics := observability.NewMetrics("pm25")

	// Open-Meteo fetchers with resilience (backoff + circuit breaker).
	service, err := providers.NewService(cfg.ProviderOptions(metrics))
	if err != nil {
		logger.Fatalf("failed to build providers: %v", err)
	}

	// In-memory prediction history with configured retention.
	history := store.NewHistoryStore(cfg.HistoryMaxEntries, cfg.HistoryMaxAge)

	cache := model.Shared()
	forecaster := predictor.New(service, cache, history, metrics, predictor.Config{
		ModelPath:  cfg.ModelPath,
		WindowDays: cfg.PredictWindowDays,
	})

	// Scheduler that periodically retrains the model on fresh data.
	jobs := pipeline.New(service, pipeline.Options{
		DataDir:   cfg.DataDir,
		ModelPath: cfg.ModelPath,
		Params:    gbm.DefaultParams(),
	}, cache, metrics)
	sched := scheduler.New(cfg.TrainCity, cfg.TrainWindowDays, cfg.RetrainInterval, jobs)
	if err := sched.Start(); err != nil {
		logger.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout*3 + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterOps(app, serviceName, metrics)
	httpapi.RegisterRoutes(app, forecaster, history)

	go func() {
		logger.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("error during shutdown: %v", err)
	}
}
