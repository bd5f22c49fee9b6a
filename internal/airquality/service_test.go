package airquality

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	coord Coordinate
	err   error
	calls int
}

func (f *fakeGeocoder) Name() string { return "fake" }

func (f *fakeGeocoder) Geocode(ctx context.Context, city string) (Coordinate, error) {
	f.calls++
	return f.coord, f.err
}

type fakeFetcher struct {
	pm    []PM25Observation
	met   []MeteoObservation
	err   error
	coord Coordinate
}

func (f *fakeFetcher) FetchPM25(ctx context.Context, coord Coordinate, r DateRange) ([]PM25Observation, error) {
	f.coord = coord
	return f.pm, f.err
}

func (f *fakeFetcher) FetchWeather(ctx context.Context, coord Coordinate, r DateRange) ([]MeteoObservation, error) {
	return f.met, f.err
}

func jan(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestService_FetchHistory(t *testing.T) {
	geo := &fakeGeocoder{coord: Coordinate{Latitude: 28.6, Longitude: 77.2}}
	fetch := &fakeFetcher{
		pm:  []PM25Observation{{Time: jan(1), PM25: 10}},
		met: []MeteoObservation{{Time: jan(1), Temperature: 12}},
	}
	svc := NewService(geo, fetch, fetch)

	h, err := svc.FetchHistory(context.Background(), " Delhi ", DateRange{Start: jan(1), End: jan(10)})
	require.NoError(t, err)

	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, "Delhi", h.City)
	assert.Equal(t, geo.coord, fetch.coord)
	assert.Len(t, h.PM25, 1)
	assert.Len(t, h.Meteo, 1)
}

func TestService_CityNotFoundPropagates(t *testing.T) {
	svc := NewService(&fakeGeocoder{err: ErrCityNotFound}, &fakeFetcher{}, &fakeFetcher{})

	_, err := svc.FetchHistory(context.Background(), "Nowhere", DateRange{Start: jan(1), End: jan(2)})
	assert.ErrorIs(t, err, ErrCityNotFound)
}

func TestService_InvalidCoordinate(t *testing.T) {
	svc := NewService(&fakeGeocoder{coord: Coordinate{Latitude: 91}}, &fakeFetcher{}, &fakeFetcher{})

	_, err := svc.Geocode(context.Background(), "Pole")
	assert.ErrorIs(t, err, ErrDataMissing)
}

func TestService_RejectsBadInput(t *testing.T) {
	geo := &fakeGeocoder{}
	svc := NewService(geo, &fakeFetcher{}, &fakeFetcher{})

	_, err := svc.Geocode(context.Background(), "   ")
	assert.Error(t, err)

	_, err = svc.FetchHistory(context.Background(), "Delhi", DateRange{Start: jan(5), End: jan(1)})
	assert.Error(t, err)
	assert.Equal(t, 0, geo.calls)
}

func TestService_FetchErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&fakeGeocoder{}, &fakeFetcher{err: boom}, &fakeFetcher{})

	_, err := svc.FetchHistory(context.Background(), "Delhi", DateRange{Start: jan(1), End: jan(2)})
	assert.ErrorIs(t, err, boom)
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, Coordinate{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Coordinate{Latitude: 0, Longitude: -180.5}.Valid())
}
