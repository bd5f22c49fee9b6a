// Package features turns hourly observations into daily model rows.
package features

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/common"
)

// MinRows is the fewest daily rows considered stable for training or prediction.
const MinRows = 10

// ErrInsufficientHistory is returned when fewer than MinRows daily rows exist.
var ErrInsufficientHistory = errors.New("insufficient history")

type meteoSum struct {
	temp, hum, wind float64
	n               int
}

// Build aggregates hourly observations to one row per UTC date present in
// both inputs, ascending, and derives lag, moving-average and calendar features.
func Build(pm []airquality.PM25Observation, met []airquality.MeteoObservation) []Row {
	pmSum := make(map[time.Time]float64)
	pmCount := make(map[time.Time]int)
	for _, o := range pm {
		d := common.TruncateDay(o.Time)
		pmSum[d] += o.PM25
		pmCount[d]++
	}

	metSum := make(map[time.Time]*meteoSum)
	for _, o := range met {
		d := common.TruncateDay(o.Time)
		s, ok := metSum[d]
		if !ok {
			s = &meteoSum{}
			metSum[d] = s
		}
		s.temp += o.Temperature
		s.hum += o.RelativeHumidity
		s.wind += o.WindSpeed
		s.n++
	}

	dates := make([]time.Time, 0, len(pmSum))
	for d := range pmSum {
		if _, ok := metSum[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]Row, len(dates))
	for i, d := range dates {
		s := metSum[d]
		n := float64(s.n)
		rows[i] = Row{
			Date:             d,
			PM25:             pmSum[d] / float64(pmCount[d]),
			Temperature:      s.temp / n,
			RelativeHumidity: s.hum / n,
			WindSpeed:        s.wind / n,
			DayOfYear:        d.YearDay(),
		}
	}

	series := PM25Series(rows)
	for i := range rows {
		applyDerived(&rows[i], series, i)
	}
	return rows
}

// applyDerived fills the lag and moving-average columns of the row at
// position i of series using positions < i only. i may equal len(series),
// which describes the day after the last observation.
func applyDerived(r *Row, series []float64, i int) {
	lag := func(k int, flag Quality) float64 {
		if i-k >= 0 {
			return series[i-k]
		}
		r.Quality |= flag
		return series[0]
	}

	r.PM25Lag1 = lag(1, FlagLag1Fallback)
	r.PM25Lag2 = lag(2, FlagLag2Fallback)
	r.PM25Lag3 = lag(3, FlagLag3Fallback)
	r.PM25Lag7 = lag(7, FlagLag7Fallback)

	switch {
	case i == 0:
		r.PM25MA3 = series[0]
		r.Quality |= FlagMA3Fallback
	default:
		r.PM25MA3 = TrailingMean(series, i-1, 3)
		if i < 3 {
			r.Quality |= FlagMA3Fallback
		}
	}
}

// TrailingMean returns the mean of values[i-window+1..i], using as many of
// those positions as exist.
func TrailingMean(values []float64, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range values[start : i+1] {
		sum += v
	}
	return sum / float64(i+1-start)
}

// PM25Series extracts the daily PM2.5 column.
func PM25Series(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.PM25
	}
	return out
}

// CheckSufficient returns ErrInsufficientHistory when rows is too short.
func CheckSufficient(rows []Row) error {
	if len(rows) < MinRows {
		return fmt.Errorf("%d daily rows, need at least %d: %w", len(rows), MinRows, ErrInsufficientHistory)
	}
	return nil
}

// NextDay builds the feature row for the day after the last row. The latest
// meteorology stands in for tomorrow's; PM2.5 is left zero.
func NextDay(rows []Row) (Row, error) {
	if len(rows) == 0 {
		return Row{}, fmt.Errorf("no rows: %w", ErrInsufficientHistory)
	}

	last := rows[len(rows)-1]
	date := last.Date.AddDate(0, 0, 1)
	next := Row{
		Date:             date,
		Temperature:      last.Temperature,
		RelativeHumidity: last.RelativeHumidity,
		WindSpeed:        last.WindSpeed,
		DayOfYear:        date.YearDay(),
	}
	applyDerived(&next, PM25Series(rows), len(rows))
	return next, nil
}

// FallbackRows counts rows with any fallback flag set.
func FallbackRows(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Quality.Fallback() {
			n++
		}
	}
	return n
}
