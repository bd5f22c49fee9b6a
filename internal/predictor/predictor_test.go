package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/model"
	"github.com/i474232898/pm25-forecast/internal/observability"
	"github.com/i474232898/pm25-forecast/internal/store"
	"github.com/i474232898/pm25-forecast/internal/trainer"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type fakeFetcher struct {
	days     int
	noPM     bool
	noMeteo  bool
	err      error
	gotRange airquality.DateRange
}

func (f *fakeFetcher) FetchHistory(_ context.Context, city string, r airquality.DateRange) (*airquality.History, error) {
	f.gotRange = r
	if f.err != nil {
		return nil, f.err
	}
	h := &airquality.History{City: city, Coordinate: airquality.Coordinate{Latitude: 28.65, Longitude: 77.23}, Range: r}
	start := r.End.AddDate(0, 0, -(f.days - 1))
	for d := 0; d < f.days; d++ {
		for hr := 0; hr < 24; hr++ {
			ts := start.AddDate(0, 0, d).Add(time.Duration(hr) * time.Hour)
			if !f.noPM {
				h.PM25 = append(h.PM25, airquality.PM25Observation{Time: ts, PM25: 70 + 25*math.Sin(float64(d)/4)})
			}
			if !f.noMeteo {
				h.Meteo = append(h.Meteo, airquality.MeteoObservation{Time: ts, Temperature: 25, RelativeHumidity: 40 + float64(d%9), WindSpeed: 3})
			}
		}
	}
	return h, nil
}

func savedModel(t *testing.T) string {
	t.Helper()
	f := &fakeFetcher{days: 60}
	h, err := f.FetchHistory(context.Background(), "Delhi", airquality.DateRange{End: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	p := gbm.DefaultParams()
	p.NEstimators = 20
	res, err := trainer.Train(features.Build(h.PM25, h.Meteo), "Delhi", p)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path, res.Artifact))
	return path
}

func newPredictor(t *testing.T, f *fakeFetcher, path string) (*Predictor, *store.HistoryStore, *observability.Metrics) {
	t.Helper()
	hist := store.NewHistoryStore(10, 0)
	m := observability.NewMetrics("test")
	p := New(f, model.NewCache(), hist, m, Config{ModelPath: path})
	p.now = func() time.Time { return fixedNow }
	return p, hist, m
}

func TestPredict_Success(t *testing.T) {
	f := &fakeFetcher{days: 120}
	p, hist, m := newPredictor(t, f, savedModel(t))

	pred, err := p.Predict(context.Background(), "  Delhi ")
	require.NoError(t, err)

	assert.Equal(t, "Delhi", pred.City)
	assert.False(t, math.IsNaN(pred.PM25))
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), pred.TargetDate)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), pred.LatestDate)
	assert.Len(t, pred.History, 120)
	assert.Empty(t, pred.Fallback)
	assert.NotEmpty(t, pred.ArtifactID)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.gotRange.End)
	assert.Equal(t, f.gotRange.End.AddDate(0, 0, -DefaultWindowDays), f.gotRange.Start)

	rec, err := hist.GetLatest("delhi")
	require.NoError(t, err)
	assert.Equal(t, pred.PM25, rec.PM25)
	assert.Equal(t, pred.ArtifactID, rec.ArtifactID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues(OutcomeOK)))
}

func TestPredict_Failures(t *testing.T) {
	path := savedModel(t)
	cases := []struct {
		name    string
		city    string
		fetcher *fakeFetcher
		path    string
		want    error
		outcome string
	}{
		{"empty city", " ", &fakeFetcher{days: 30}, path, ErrEmptyCity, OutcomeInvalid},
		{"city not found", "Atlantis", &fakeFetcher{err: fmt.Errorf("geocode: %w", airquality.ErrCityNotFound)}, path, airquality.ErrCityNotFound, OutcomeNotFound},
		{"no pm2.5", "Delhi", &fakeFetcher{days: 30, noPM: true}, path, ErrNoPM25Data, OutcomeNoData},
		{"no meteorology", "Delhi", &fakeFetcher{days: 30, noMeteo: true}, path, ErrNoMeteoData, OutcomeNoData},
		{"insufficient history", "Delhi", &fakeFetcher{days: 9}, path, features.ErrInsufficientHistory, OutcomeInsufficient},
		{"no model", "Delhi", &fakeFetcher{days: 30}, filepath.Join(t.TempDir(), "missing.json"), model.ErrArtifactNotFound, OutcomeModelUnavailable},
		{"city not found without model", "Atlantis", &fakeFetcher{err: airquality.ErrCityNotFound}, filepath.Join(t.TempDir(), "missing.json"), airquality.ErrCityNotFound, OutcomeNotFound},
		{"insufficient history without model", "Delhi", &fakeFetcher{days: 9}, filepath.Join(t.TempDir(), "missing.json"), features.ErrInsufficientHistory, OutcomeInsufficient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, hist, m := newPredictor(t, tc.fetcher, tc.path)

			pred, err := p.Predict(context.Background(), tc.city)
			require.Error(t, err)
			assert.Nil(t, pred)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, tc.outcome, Outcome(err))
			assert.NotEmpty(t, UserMessage(err))
			assert.Empty(t, hist.Cities())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues(tc.outcome)))
		})
	}
}

func TestPredict_NoDataWrapsDataMissing(t *testing.T) {
	assert.True(t, errors.Is(ErrNoPM25Data, airquality.ErrDataMissing))
	assert.True(t, errors.Is(ErrNoMeteoData, airquality.ErrDataMissing))
}

func TestUserMessage_Distinct(t *testing.T) {
	errs := []error{
		ErrEmptyCity,
		airquality.ErrCityNotFound,
		ErrNoPM25Data,
		ErrNoMeteoData,
		airquality.ErrDataMissing,
		features.ErrInsufficientHistory,
		model.ErrArtifactNotFound,
		model.ErrFeatureOrderMismatch,
		errors.New("connection reset"),
	}
	seen := map[string]bool{}
	for _, err := range errs {
		msg := UserMessage(err)
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate message %q", msg)
		seen[msg] = true
	}
	assert.Empty(t, UserMessage(nil))
}
