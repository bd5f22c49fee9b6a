package features

import (
	"strings"
	"time"
)

// Column names of the daily feature table.
const (
	ColDate             = "date"
	ColPM25             = "pm25"
	ColTemperature      = "temperature"
	ColRelativeHumidity = "relativehumidity"
	ColWindSpeed        = "windspeed"
	ColLag1             = "pm25_lag_1"
	ColLag2             = "pm25_lag_2"
	ColLag3             = "pm25_lag_3"
	ColLag7             = "pm25_lag_7"
	ColMA3              = "pm25_ma_3"
	ColDayOfYear        = "dayofyear"
)

// TargetColumn is the column the model predicts.
const TargetColumn = ColPM25

// columns is the fit-time order of the model inputs. Everything except the
// date label and the target.
var columns = []string{
	ColTemperature,
	ColRelativeHumidity,
	ColWindSpeed,
	ColLag1,
	ColLag2,
	ColLag3,
	ColLag7,
	ColMA3,
	ColDayOfYear,
}

// ColumnNames returns the ordered feature-column names.
func ColumnNames() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}

// Quality is a bit set of derived features that used the earliest-value fallback.
type Quality uint8

const (
	FlagLag1Fallback Quality = 1 << iota
	FlagLag2Fallback
	FlagLag3Fallback
	FlagLag7Fallback
	FlagMA3Fallback
)

var qualityNames = []struct {
	flag Quality
	name string
}{
	{FlagLag1Fallback, ColLag1},
	{FlagLag2Fallback, ColLag2},
	{FlagLag3Fallback, ColLag3},
	{FlagLag7Fallback, ColLag7},
	{FlagMA3Fallback, ColMA3},
}

// Has reports whether f is set.
func (q Quality) Has(f Quality) bool {
	return q&f != 0
}

// Fallback reports whether any derived feature fell back.
func (q Quality) Fallback() bool {
	return q != 0
}

// Columns lists the feature columns that fell back.
func (q Quality) Columns() []string {
	var out []string
	for _, qn := range qualityNames {
		if q.Has(qn.flag) {
			out = append(out, qn.name)
		}
	}
	return out
}

func (q Quality) String() string {
	if q == 0 {
		return "ok"
	}
	return "fallback:" + strings.Join(q.Columns(), ",")
}

// Row is one calendar day of aggregated observations and derived features.
type Row struct {
	Date             time.Time `json:"date"`
	PM25             float64   `json:"pm25"`
	Temperature      float64   `json:"temperature"`
	RelativeHumidity float64   `json:"relativehumidity"`
	WindSpeed        float64   `json:"windspeed"`
	PM25Lag1         float64   `json:"pm25_lag_1"`
	PM25Lag2         float64   `json:"pm25_lag_2"`
	PM25Lag3         float64   `json:"pm25_lag_3"`
	PM25Lag7         float64   `json:"pm25_lag_7"`
	PM25MA3          float64   `json:"pm25_ma_3"`
	DayOfYear        int       `json:"dayofyear"`
	Quality          Quality   `json:"quality"`
}

// Value returns the named feature column.
func (r Row) Value(name string) (float64, bool) {
	switch name {
	case ColTemperature:
		return r.Temperature, true
	case ColRelativeHumidity:
		return r.RelativeHumidity, true
	case ColWindSpeed:
		return r.WindSpeed, true
	case ColLag1:
		return r.PM25Lag1, true
	case ColLag2:
		return r.PM25Lag2, true
	case ColLag3:
		return r.PM25Lag3, true
	case ColLag7:
		return r.PM25Lag7, true
	case ColMA3:
		return r.PM25MA3, true
	case ColDayOfYear:
		return float64(r.DayOfYear), true
	case ColPM25:
		return r.PM25, true
	default:
		return 0, false
	}
}

// Features returns the model inputs keyed by column name.
func (r Row) Features() map[string]float64 {
	out := make(map[string]float64, len(columns))
	for _, c := range columns {
		v, _ := r.Value(c)
		out[c] = v
	}
	return out
}
