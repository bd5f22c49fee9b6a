package trainer

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/model"
)

func dailyRows(t *testing.T, days int) []features.Row {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var pm []airquality.PM25Observation
	var met []airquality.MeteoObservation
	for d := 0; d < days; d++ {
		for h := 0; h < 24; h++ {
			ts := start.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			pm = append(pm, airquality.PM25Observation{Time: ts, PM25: 80 + 20*math.Sin(float64(d)/3) + float64(h%4)})
			met = append(met, airquality.MeteoObservation{
				Time:             ts,
				Temperature:      15 + float64(d%7),
				RelativeHumidity: 55 + float64(h%10),
				WindSpeed:        3 + float64(d%4),
			})
		}
	}
	rows := features.Build(pm, met)
	require.Len(t, rows, days)
	return rows
}

func fastParams() gbm.Params {
	p := gbm.DefaultParams()
	p.NEstimators = 25
	return p
}

func TestSplit_Chronological(t *testing.T) {
	rows := dailyRows(t, 10)
	train, holdout := Split(rows)
	require.Len(t, train, 8)
	require.Len(t, holdout, 2)
	assert.True(t, train[len(train)-1].Date.Before(holdout[0].Date))
	assert.Equal(t, rows[9].Date, holdout[1].Date)
}

func TestSplit_HoldoutRoundsUp(t *testing.T) {
	rows := dailyRows(t, 11)
	train, holdout := Split(rows)
	assert.Len(t, train, 8)
	assert.Len(t, holdout, 3)
}

func TestTrain_ProducesArtifact(t *testing.T) {
	rows := dailyRows(t, 40)
	res, err := Train(rows, "Delhi", fastParams())
	require.NoError(t, err)

	assert.Equal(t, 32, res.TrainRows)
	assert.Equal(t, 8, res.HoldoutRows)
	assert.Equal(t, 7, res.FallbackRows)
	assert.False(t, math.IsNaN(res.HoldoutRMSE))
	assert.GreaterOrEqual(t, res.HoldoutRMSE, 0.0)
	assert.Equal(t, rows[31].Date, res.TrainEnd)
	assert.Equal(t, rows[32].Date, res.HoldoutStart)

	a := res.Artifact
	require.NotNil(t, a)
	assert.Equal(t, features.ColumnNames(), a.Features)
	assert.Equal(t, "Delhi", a.City)
	assert.Equal(t, res.HoldoutRMSE, a.HoldoutRMSE)
	require.NoError(t, a.Validate())

	next, err := features.NextDay(rows)
	require.NoError(t, err)
	v, err := a.Predict(next)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(v))
}

func TestTrain_Deterministic(t *testing.T) {
	rows := dailyRows(t, 30)
	a, err := Train(rows, "", fastParams())
	require.NoError(t, err)
	b, err := Train(rows, "", fastParams())
	require.NoError(t, err)
	assert.Equal(t, a.HoldoutRMSE, b.HoldoutRMSE)
	assert.Equal(t, a.Artifact.Booster.Trees, b.Artifact.Booster.Trees)
}

func TestTrain_InsufficientHistory(t *testing.T) {
	rows := dailyRows(t, 9)
	_, err := Train(rows, "Delhi", fastParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, features.ErrInsufficientHistory))
}

func TestTrain_RejectsUnorderedRows(t *testing.T) {
	rows := dailyRows(t, 12)
	rows[3], rows[4] = rows[4], rows[3]
	_, err := Train(rows, "Delhi", fastParams())
	require.Error(t, err)
}

func TestTrain_InvalidParams(t *testing.T) {
	p := fastParams()
	p.MaxDepth = 0
	_, err := Train(dailyRows(t, 12), "Delhi", p)
	require.Error(t, err)
}

func TestMatrix_UnknownColumn(t *testing.T) {
	_, _, err := Matrix(dailyRows(t, 10), []string{"temperature", "bogus"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrFeatureOrderMismatch))
}

func TestReport_RoundTrip(t *testing.T) {
	res, err := Train(dailyRows(t, 20), "Delhi", fastParams())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "report.yaml")
	require.NoError(t, WriteReport(path, res))

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.ID, got.ArtifactID)
	assert.Equal(t, "Delhi", got.City)
	assert.Equal(t, 16, got.TrainRows)
	assert.Equal(t, 4, got.HoldoutRows)
	assert.Equal(t, features.ColumnNames(), got.Features)
	assert.Equal(t, [2]string{"2024-01-01", "2024-01-16"}, got.TrainRange)
	assert.Equal(t, 25, got.Params.NEstimators)
	assert.InDelta(t, res.HoldoutRMSE, got.HoldoutRMSE, 1e-9)
}
