// Package predictor issues next-day PM2.5 forecasts for a city.
package predictor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/common"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/model"
	"github.com/i474232898/pm25-forecast/internal/observability"
	"github.com/i474232898/pm25-forecast/internal/store"
)

// DefaultWindowDays is how much history a prediction fetches.
const DefaultWindowDays = 120

// HistoryFetcher is satisfied by *airquality.Service.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, city string, r airquality.DateRange) (*airquality.History, error)
}

// DailyPoint is one observed daily mean, used for charting.
type DailyPoint struct {
	Date time.Time `json:"date"`
	PM25 float64   `json:"pm25"`
}

// Prediction is a next-day PM2.5 forecast.
type Prediction struct {
	City       string                `json:"city"`
	Coordinate airquality.Coordinate `json:"coordinate"`
	IssuedAt   time.Time             `json:"issuedAt"`
	TargetDate time.Time             `json:"targetDate"`
	PM25       float64               `json:"pm25"`
	LatestDate time.Time             `json:"latestDate"`
	LatestPM25 float64               `json:"latestPm25"`
	History    []DailyPoint          `json:"history"`
	Fallback   []string              `json:"fallback,omitempty"`
	ArtifactID string                `json:"artifactId"`
}

// Config controls where the model lives and how much history is fetched.
type Config struct {
	ModelPath  string
	WindowDays int
}

// Predictor runs the predict pipeline. history and metrics may be nil.
type Predictor struct {
	fetcher HistoryFetcher
	cache   *model.Cache
	history *store.HistoryStore
	metrics *observability.Metrics
	cfg     Config
	now     func() time.Time
}

// New creates a Predictor.
func New(fetcher HistoryFetcher, cache *model.Cache, history *store.HistoryStore, metrics *observability.Metrics, cfg Config) *Predictor {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	return &Predictor{
		fetcher: fetcher,
		cache:   cache,
		history: history,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Predict forecasts tomorrow's daily mean PM2.5 for city. Any failure along
// the way is returned and no value is produced.
func (p *Predictor) Predict(ctx context.Context, city string) (*Prediction, error) {
	// city may alias a reused request buffer; it outlives the request in
	// the history store and metric labels.
	city = strings.Clone(strings.TrimSpace(city))
	pred, err := p.predict(ctx, city)
	if err != nil {
		logger.Warnf("predict %q: %v", city, err)
		p.metrics.ObservePrediction(city, Outcome(err), 0)
		return nil, err
	}

	p.metrics.ObservePrediction(pred.City, OutcomeOK, pred.PM25)
	if p.history != nil {
		p.history.SavePrediction(store.PredictionRecord{
			City:       pred.City,
			IssuedAt:   pred.IssuedAt,
			TargetDate: pred.TargetDate,
			PM25:       pred.PM25,
			LatestPM25: pred.LatestPM25,
			LatestDate: pred.LatestDate,
			ArtifactID: pred.ArtifactID,
			Fallback:   pred.Fallback,
		})
	}
	return pred, nil
}

func (p *Predictor) predict(ctx context.Context, city string) (*Prediction, error) {
	if city == "" {
		return nil, ErrEmptyCity
	}

	now := p.now()
	start, end := common.TrailingWindow(now, p.cfg.WindowDays)
	h, err := p.fetcher.FetchHistory(ctx, city, airquality.DateRange{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	if len(h.PM25) == 0 {
		return nil, ErrNoPM25Data
	}
	if len(h.Meteo) == 0 {
		return nil, ErrNoMeteoData
	}

	rows := features.Build(h.PM25, h.Meteo)
	if err := features.CheckSufficient(rows); err != nil {
		return nil, err
	}

	artifact, err := p.cache.Get(p.cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	next, err := features.NextDay(rows)
	if err != nil {
		return nil, err
	}
	value, err := artifact.Predict(next)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	latest := rows[len(rows)-1]
	points := make([]DailyPoint, len(rows))
	for i, r := range rows {
		points[i] = DailyPoint{Date: r.Date, PM25: r.PM25}
	}

	logger.Infof("predicted %.2f µg/m³ for %s on %s (model %s)",
		value, city, next.Date.Format(common.DateLayout), artifact.ID)

	return &Prediction{
		City:       h.City,
		Coordinate: h.Coordinate,
		IssuedAt:   now.UTC(),
		TargetDate: next.Date,
		PM25:       value,
		LatestDate: latest.Date,
		LatestPM25: latest.PM25,
		History:    points,
		Fallback:   next.Quality.Columns(),
		ArtifactID: artifact.ID,
	}, nil
}
