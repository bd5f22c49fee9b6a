package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/trainer"
)

// Retrainer is satisfied by *pipeline.Pipeline.
type Retrainer interface {
	Retrain(ctx context.Context, city string, days int) (*trainer.Result, error)
}

// Scheduler periodically retrains the model on fresh data for one city.
type Scheduler struct {
	scheduler *gocron.Scheduler
	retrainer Retrainer
	city      string
	days      int
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(city string, days int, interval time.Duration, retrainer Retrainer) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		retrainer: retrainer,
		city:      city,
		days:      days,
		interval:  interval,
		timeout:   10 * time.Minute,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if s.city == "" || s.interval <= 0 {
		logger.Infof("scheduler: no training city or interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run() {
	logger.Infof("scheduler: retraining on %d days for %s", s.days, s.city)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.retrainer.Retrain(ctx, s.city, s.days)
	if err != nil {
		logger.Errorf("scheduler: retrain failed for %s: %v", s.city, err)
		return
	}
	logger.Infof("scheduler: retrained model %s, holdout RMSE %.2f", res.Artifact.ID, res.HoldoutRMSE)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
