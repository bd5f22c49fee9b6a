// Package pipeline chains fetching, feature building and training into the
// batch jobs run by the CLIs and the retraining scheduler.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/common"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/model"
	"github.com/i474232898/pm25-forecast/internal/observability"
	"github.com/i474232898/pm25-forecast/internal/store"
	"github.com/i474232898/pm25-forecast/internal/trainer"
)

// HistoryFetcher is satisfied by *airquality.Service.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, city string, r airquality.DateRange) (*airquality.History, error)
}

// Options configures where the pipeline reads and writes.
type Options struct {
	DataDir       string
	ModelPath     string
	ExportParquet bool
	Params        gbm.Params
}

// Pipeline runs the fetch and train jobs.
type Pipeline struct {
	fetcher HistoryFetcher
	opts    Options
	cache   *model.Cache
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a Pipeline. cache and metrics may be nil.
func New(fetcher HistoryFetcher, opts Options, cache *model.Cache, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		opts:    opts,
		cache:   cache,
		metrics: metrics,
		now:     time.Now,
	}
}

// ReportPath is where the training report for a model artifact is written.
func ReportPath(modelPath string) string {
	return strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".report.yaml"
}

// FetchToCSV fetches both hourly series for city over r and writes them as
// the PM2.5 and weather tables in the data directory.
func (p *Pipeline) FetchToCSV(ctx context.Context, city string, r airquality.DateRange) (*airquality.History, error) {
	h, err := p.fetcher.FetchHistory(ctx, city, r)
	if err != nil {
		return nil, err
	}
	if len(h.PM25) == 0 {
		return nil, fmt.Errorf("no pm2.5 hours for %q: %w", city, airquality.ErrDataMissing)
	}
	if len(h.Meteo) == 0 {
		return nil, fmt.Errorf("no weather hours for %q: %w", city, airquality.ErrDataMissing)
	}

	if err := store.WriteTables(p.opts.DataDir, h); err != nil {
		return nil, err
	}
	logger.Infof("wrote %s and %s to %s", store.PM25File, store.WeatherFile, p.opts.DataDir)
	return h, nil
}

// TrainFromCSV trains on the tables in the data directory and saves the
// artifact and its report. city is recorded on the artifact only.
func (p *Pipeline) TrainFromCSV(city string) (*trainer.Result, error) {
	pm, met, err := store.ReadTables(p.opts.DataDir)
	if err != nil {
		return nil, err
	}

	rows := features.Build(pm, met)
	logger.Infof("built %d daily rows from %d pm2.5 and %d weather hours", len(rows), len(pm), len(met))

	if p.opts.ExportParquet {
		if _, err := store.WriteFeatures(p.opts.DataDir, rows); err != nil {
			return nil, err
		}
	}

	res, err := trainer.Train(rows, city, p.opts.Params)
	if err != nil {
		return nil, err
	}

	if err := model.Save(p.opts.ModelPath, res.Artifact); err != nil {
		return nil, err
	}
	if err := trainer.WriteReport(ReportPath(p.opts.ModelPath), res); err != nil {
		return nil, err
	}
	logger.Infof("saved model %s to %s", res.Artifact.ID, p.opts.ModelPath)
	return res, nil
}

// Retrain fetches the trailing window of days for city, trains on it and
// drops the cached model so the next prediction loads the new artifact.
func (p *Pipeline) Retrain(ctx context.Context, city string, days int) (*trainer.Result, error) {
	start, end := common.TrailingWindow(p.now(), days)
	res, err := p.retrain(ctx, city, airquality.DateRange{Start: start, End: end})

	if res != nil {
		p.metrics.ObserveTraining(nil, res.HoldoutRMSE, res.TrainRows+res.HoldoutRows, res.FallbackRows, res.Artifact.CreatedAt)
	} else {
		p.metrics.ObserveTraining(err, 0, 0, 0, time.Time{})
	}
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.Invalidate()
	}
	return res, nil
}

func (p *Pipeline) retrain(ctx context.Context, city string, r airquality.DateRange) (*trainer.Result, error) {
	if _, err := p.FetchToCSV(ctx, city, r); err != nil {
		return nil, fmt.Errorf("retrain %q: %w", city, err)
	}
	res, err := p.TrainFromCSV(city)
	if err != nil {
		return nil, fmt.Errorf("retrain %q: %w", city, err)
	}
	return res, nil
}
