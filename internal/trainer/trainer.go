// Package trainer fits the next-day PM2.5 model on daily feature rows.
package trainer

import (
	"fmt"
	"math"
	"time"

	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/model"
)

// HoldoutFraction is the share of most recent rows withheld for evaluation.
const HoldoutFraction = 0.2

// Result describes one training run.
type Result struct {
	Artifact     *model.Artifact
	HoldoutRMSE  float64
	TrainRows    int
	HoldoutRows  int
	FallbackRows int
	TrainStart   time.Time
	TrainEnd     time.Time
	HoldoutStart time.Time
	HoldoutEnd   time.Time
	SplitCounts  map[string]int
}

// Split partitions rows chronologically; the holdout is the most recent
// ceil(20%) rows. Rows must already be in ascending date order.
func Split(rows []features.Row) (train, holdout []features.Row) {
	n := len(rows)
	h := int(math.Ceil(HoldoutFraction * float64(n)))
	if h < 1 && n > 1 {
		h = 1
	}
	return rows[:n-h], rows[n-h:]
}

// Matrix lays out rows per cols and extracts the target column.
func Matrix(rows []features.Row, cols []string) ([][]float64, []float64, error) {
	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		x[i] = make([]float64, len(cols))
		for j, c := range cols {
			v, ok := r.Value(c)
			if !ok {
				return nil, nil, fmt.Errorf("unknown feature column %q: %w", c, model.ErrFeatureOrderMismatch)
			}
			x[i][j] = v
		}
		y[i] = r.PM25
	}
	return x, y, nil
}

// Train fits a booster on all but the holdout rows and scores it on the holdout.
func Train(rows []features.Row, city string, p gbm.Params) (*Result, error) {
	if err := features.CheckSufficient(rows); err != nil {
		return nil, err
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i-1].Date.Before(rows[i].Date) {
			return nil, fmt.Errorf("rows not in ascending date order at %d", i)
		}
	}

	train, holdout := Split(rows)
	cols := features.ColumnNames()

	xTrain, yTrain, err := Matrix(train, cols)
	if err != nil {
		return nil, err
	}
	xHold, yHold, err := Matrix(holdout, cols)
	if err != nil {
		return nil, err
	}

	logger.Infof("training on %d rows (%s..%s), holding out %d",
		len(train), train[0].Date.Format("2006-01-02"), train[len(train)-1].Date.Format("2006-01-02"), len(holdout))

	booster, err := gbm.Fit(xTrain, yTrain, cols, p)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	preds, err := booster.PredictBatch(xHold)
	if err != nil {
		return nil, fmt.Errorf("score holdout: %w", err)
	}
	rmse, err := gbm.RMSE(yHold, preds)
	if err != nil {
		return nil, fmt.Errorf("score holdout: %w", err)
	}

	artifact := model.NewArtifact(booster, city)
	artifact.HoldoutRMSE = rmse
	artifact.TrainRows = len(train)
	artifact.HoldoutRows = len(holdout)

	fallback := features.FallbackRows(rows)
	if fallback > 0 {
		logger.Warnf("%d of %d rows used an earliest-value lag fallback", fallback, len(rows))
	}
	logger.Infof("model trained, holdout RMSE %.2f", rmse)

	return &Result{
		Artifact:     artifact,
		HoldoutRMSE:  rmse,
		TrainRows:    len(train),
		HoldoutRows:  len(holdout),
		FallbackRows: fallback,
		TrainStart:   train[0].Date,
		TrainEnd:     train[len(train)-1].Date,
		HoldoutStart: holdout[0].Date,
		HoldoutEnd:   holdout[len(holdout)-1].Date,
		SplitCounts:  booster.SplitCounts(),
	}, nil
}
