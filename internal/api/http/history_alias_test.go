package httpapi

import (
	"context"
	"math"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/pm25-forecast/internal/airquality"
	"github.com/i474232898/pm25-forecast/internal/features"
	"github.com/i474232898/pm25-forecast/internal/gbm"
	"github.com/i474232898/pm25-forecast/internal/model"
	"github.com/i474232898/pm25-forecast/internal/predictor"
	"github.com/i474232898/pm25-forecast/internal/store"
	"github.com/i474232898/pm25-forecast/internal/trainer"
)

// syntheticFetcher serves 30 days of hourly data ending at the requested end date.
type syntheticFetcher struct{}

func (syntheticFetcher) FetchHistory(_ context.Context, city string, r airquality.DateRange) (*airquality.History, error) {
	h := &airquality.History{City: strings.TrimSpace(city), Range: r}
	start := r.End.AddDate(0, 0, -29)
	for d := 0; d < 30; d++ {
		for hr := 0; hr < 24; hr++ {
			ts := start.AddDate(0, 0, d).Add(time.Duration(hr) * time.Hour)
			h.PM25 = append(h.PM25, airquality.PM25Observation{Time: ts, PM25: 60 + 20*math.Sin(float64(d)/3)})
			h.Meteo = append(h.Meteo, airquality.MeteoObservation{Time: ts, Temperature: 20, RelativeHumidity: 50 + float64(d%5), WindSpeed: 2})
		}
	}
	return h, nil
}

func trainedModelPath(t *testing.T) string {
	t.Helper()
	h, err := syntheticFetcher{}.FetchHistory(context.Background(), "train", airquality.DateRange{End: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	p := gbm.DefaultParams()
	p.NEstimators = 10
	res, err := trainer.Train(features.Build(h.PM25, h.Meteo), "train", p)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := model.Save(path, res.Artifact); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

// TestHistoryKeepsCityAcrossRequests checks that city names recorded by
// earlier requests survive later requests reusing fasthttp's buffers.
func TestHistoryKeepsCityAcrossRequests(t *testing.T) {
	hist := store.NewHistoryStore(10, 0)
	forecaster := predictor.New(syntheticFetcher{}, model.NewCache(), hist, nil, predictor.Config{ModelPath: trainedModelPath(t)})
	app := newTestApp(forecaster, hist)

	if code, body := doGet(t, app, "/api/v1/predict?city=aaaaa"); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, code, body)
	}
	for i := 0; i < 5; i++ {
		if code, body := doGet(t, app, "/api/v1/predict?city=zzzzz"); code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, code, body)
		}
		doGet(t, app, "/api/v1/predictions/latest?city=qqqqq")
		doGet(t, app, "/?city=ppppp")
	}

	rec, err := hist.GetLatest("aaaaa")
	if err != nil {
		t.Fatalf("history for aaaaa lost: %v", err)
	}
	if rec.City != "aaaaa" {
		t.Fatalf("expected city %q in history, got %q", "aaaaa", rec.City)
	}

	want := []string{"aaaaa", "ppppp", "zzzzz"}
	if got := hist.Cities(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected cities %v, got %v", want, got)
	}

	code, body := doGet(t, app, "/api/v1/predictions/cities")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if !strings.Contains(body, `"cities":["aaaaa","ppppp","zzzzz"]`) {
		t.Fatalf("unexpected cities body %s", body)
	}
}
